package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// The adapter layer turns a raw disassembler export into an ExecDB.
// The export is a JSON document produced outside this tool (any
// disassembler able to list functions, basic blocks with their last
// mnemonic, calls, strings and vtables can emit it); Normalize applies
// the branch-polarity contract and resolves reference sites into
// Address triples. Adapter anomalies are logged and skipped, never
// fatal.

// RawDump is the disassembler export for one binary.
type RawDump struct {
	Functions []RawFunction `json:"functions"`
	Strings   []RawString   `json:"strings"`
	Vtables   []RawVtable   `json:"vtables"`
}

// RawFunction is one function: entry, optional mangled name, blocks and
// incoming call-site byte addresses.
type RawFunction struct {
	Name   string     `json:"name,omitempty"`
	Addr   uint64     `json:"addr"`
	Blocks []RawBlock `json:"blocks"`
	Xrefs  []uint64   `json:"xrefs,omitempty"`
}

// RawBlock is one basic block. Jump is the explicit branch target and
// Fail the fallthrough; a zero Jump with HasJump set means the target
// could not be resolved. Last is the terminator mnemonic.
type RawBlock struct {
	Addr    uint64    `json:"addr"`
	Size    uint64    `json:"size"`
	Last    string    `json:"last"`
	Jump    uint64    `json:"jump,omitempty"`
	HasJump bool      `json:"has_jump,omitempty"`
	Fail    uint64    `json:"fail,omitempty"`
	HasFail bool      `json:"has_fail,omitempty"`
	Calls   []RawCall `json:"calls,omitempty"`
	Strings []string  `json:"strings,omitempty"`
}

// RawCall is one outgoing call: the call-site address and the callee
// entry when statically resolved.
type RawCall struct {
	Site   uint64 `json:"site"`
	Callee uint64 `json:"callee,omitempty"`
	Known  bool   `json:"known"`
}

type RawString struct {
	Literal string   `json:"literal"`
	Refs    []uint64 `json:"refs"`
}

type RawVtable struct {
	Name    string   `json:"name"`
	Addr    uint64   `json:"addr"`
	Methods []uint64 `json:"methods"`
}

// LoadRawDump reads a disassembler export from disk.
func LoadRawDump(path string) (*RawDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adapter: read %s: %w", path, err)
	}
	raw := new(RawDump)
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("adapter: decode %s: %w", path, err)
	}
	return raw, nil
}

// blockPool maps any byte address to the nearest block starting at or
// below it, via the sorted list of block start addresses. Block sizes
// are not consulted.
type blockPool struct {
	addrs []uint64
	fns   map[uint64]uint64 // block addr -> function addr
}

func newBlockPool(raw *RawDump) *blockPool {
	p := &blockPool{fns: make(map[uint64]uint64)}
	for _, fn := range raw.Functions {
		for _, blk := range fn.Blocks {
			p.addrs = append(p.addrs, blk.Addr)
			p.fns[blk.Addr] = fn.Addr
		}
	}
	sort.Slice(p.addrs, func(i, j int) bool { return p.addrs[i] < p.addrs[j] })
	return p
}

// resolve returns the Address triple for a byte address, locating the
// nearest block at or below it.
func (p *blockPool) resolve(site uint64) (Address, bool) {
	i := sort.Search(len(p.addrs), func(i int) bool { return p.addrs[i] > site })
	if i == 0 {
		return Address{}, false
	}
	blk := p.addrs[i-1]
	return Address{Addr: site, BlockAddr: blk, FunctionAddr: p.fns[blk]}, true
}

// Normalize turns a raw export into an immutable ExecDB, applying the
// branch normalization contract and dropping (with a log line) any
// reference site that does not land in the block pool.
func Normalize(raw *RawDump) *ExecDB {
	pool := newBlockPool(raw)
	db := &ExecDB{
		Fns:     make(map[uint64]*Function, len(raw.Functions)),
		Vtables: make(map[string]*Vtable, len(raw.Vtables)),
		Strings: make(map[string]*StringRef, len(raw.Strings)),
	}

	for _, rf := range raw.Functions {
		fn := &Function{
			Name: rf.Name,
			Address: Address{
				Addr:         rf.Addr,
				BlockAddr:    rf.Addr,
				FunctionAddr: rf.Addr,
			},
		}
		for _, rb := range rf.Blocks {
			blk := Block{
				Address: Address{Addr: rb.Addr, BlockAddr: rb.Addr, FunctionAddr: rf.Addr},
				Branch:  normalizeBranch(rb),
				Strings: rb.Strings,
			}
			for _, rc := range rb.Calls {
				if rc.Known {
					blk.Calls = append(blk.Calls, KnownDest(rc.Callee))
				} else {
					blk.Calls = append(blk.Calls, UnknownDest())
				}
			}
			fn.Blocks = append(fn.Blocks, blk)
		}
		for _, site := range rf.Xrefs {
			addr, ok := pool.resolve(site)
			if !ok {
				logrus.Warnf("adapter: xref %#x of %#x not in block pool, skipped", site, rf.Addr)
				continue
			}
			fn.Xrefs = append(fn.Xrefs, addr)
		}
		db.Fns[rf.Addr] = fn
	}

	for _, rs := range raw.Strings {
		ref := &StringRef{Literal: rs.Literal}
		for _, site := range rs.Refs {
			addr, ok := pool.resolve(site)
			if !ok {
				logrus.Warnf("adapter: string ref %#x not in block pool, skipped", site)
				continue
			}
			ref.Xrefs = append(ref.Xrefs, addr)
		}
		db.Strings[rs.Literal] = ref
	}

	for _, rv := range raw.Vtables {
		db.Vtables[rv.Name] = &Vtable{Name: rv.Name, Addr: rv.Addr, FunctionAddrs: rv.Methods}
	}
	return db
}

// normalizeBranch maps one raw terminator onto the four branch shapes.
// A block with neither jump nor fallthrough returns.
func normalizeBranch(rb RawBlock) Branch {
	if !rb.HasJump && !rb.HasFail {
		return ReturnBranch()
	}
	jump := UnknownDest()
	if rb.HasJump && rb.Jump != 0 {
		jump = KnownDest(rb.Jump)
	}
	fail := UnknownDest()
	if rb.HasFail {
		fail = KnownDest(rb.Fail)
	}
	if !rb.HasFail {
		// unconditional transfer
		return NeutralBranch(jump)
	}
	return BranchFromMnemonic(rb.Last, jump, fail)
}
