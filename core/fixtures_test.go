package core

import "fmt"

// scriptedOracle replays canned answers in order and records every
// question. Once the script runs out it answers No.
type scriptedOracle struct {
	answers []Answer
	asked   []string
}

func (o *scriptedOracle) Ask(name string, addr uint64) Answer {
	o.asked = append(o.asked, fmt.Sprintf("%s@%#x", name, addr))
	if len(o.answers) == 0 {
		return AnswerNo
	}
	a := o.answers[0]
	o.answers = o.answers[1:]
	return a
}

func newExecDB() *ExecDB {
	return &ExecDB{
		Fns:     make(map[uint64]*Function),
		Vtables: make(map[string]*Vtable),
		Strings: make(map[string]*StringRef),
	}
}

// addFn registers a function with the given entry and blocks.
func addFn(db *ExecDB, name string, addr uint64, blocks ...Block) *Function {
	fn := &Function{
		Name:    name,
		Address: Address{Addr: addr, BlockAddr: addr, FunctionAddr: addr},
		Blocks:  blocks,
	}
	db.Fns[addr] = fn
	return fn
}

// blk builds a basic block inside fnAddr.
func blk(fnAddr, addr uint64, branch Branch, calls []Dest, strs ...string) Block {
	return Block{
		Address: Address{Addr: addr, BlockAddr: addr, FunctionAddr: fnAddr},
		Calls:   calls,
		Branch:  branch,
		Strings: strs,
	}
}

// site builds an Address triple for a byte address inside a block.
func site(addr, blockAddr, fnAddr uint64) Address {
	return Address{Addr: addr, BlockAddr: blockAddr, FunctionAddr: fnAddr}
}

func testBinds(answers ...Answer) (*BindDB, *scriptedOracle) {
	oracle := &scriptedOracle{answers: answers}
	return NewBindDB(oracle, ""), oracle
}
