package core

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Strategy proposes a batch of symbol bindings from one signal. A
// strategy reads the bind database but never mutates it; the driver
// merges its batch through BindDB.Process. Strategies are idempotent.
type Strategy struct {
	Name string
	Run  func(*ExecPair, *BindDB) map[string]uint64
}

// XrefPair pairs the input and output reference sites of one shared
// signal (a string literal, or the call sites of a bound function).
type XrefPair struct {
	In  []Address
	Out []Address
}

// BlockPair is an aligned (input, output) basic-block pair.
type BlockPair struct {
	In  *Block
	Out *Block
}

// xrefBinds derives bindings from reference-site pairs. A pair with
// exactly one site on each side is uniquely determined and binds the
// enclosing functions directly. Pairs with several sites on both sides
// go through the block matcher per input site. Asymmetric pairs are
// ambiguous and contribute nothing this round.
func xrefBinds(binds *BindDB, pair *ExecPair, xrefs []XrefPair) map[string]uint64 {
	out := make(map[string]uint64)

	for _, x := range xrefs {
		switch {
		case len(x.In) == 1 && len(x.Out) == 1:
			fn, ok := pair.Input.Fns[x.In[0].FunctionAddr]
			if !ok || fn.Name == "" {
				continue
			}
			out[fn.Name] = x.Out[0].FunctionAddr

		case len(x.In) > 1 && len(x.Out) > 1:
			candidates := make([]*Block, 0, len(x.Out))
			for _, addr := range x.Out {
				if blk := pair.Output.BlockAt(addr); blk != nil {
					candidates = append(candidates, blk)
				} else {
					logrus.Warnf("xref: output block %#x not in block pool", addr.BlockAddr)
				}
			}
			if len(candidates) == 0 {
				continue
			}
			for _, addr := range x.In {
				inBlk := pair.Input.BlockAt(addr)
				if inBlk == nil {
					logrus.Warnf("xref: input block %#x not in block pool", addr.BlockAddr)
					continue
				}
				fn, ok := pair.Input.Fns[inBlk.Address.FunctionAddr]
				if !ok || fn.Name == "" {
					continue
				}
				if m := MatchBlock(binds, pair, inBlk, candidates); m != nil {
					out[fn.Name] = m.Address.FunctionAddr
				}
			}
		}
	}
	return out
}

// blockBinds walks aligned block pairs call-by-call and binds callees
// where both sides are resolved. An Inline-bound input callee or a
// resolved/unresolved mismatch means the output call sequence has
// diverged, so the rest of that block pair is abandoned.
func blockBinds(binds *BindDB, pair *ExecPair, blocks []BlockPair) map[string]uint64 {
	out := make(map[string]uint64)

	for _, bp := range blocks {
		n := len(bp.In.Calls)
		if len(bp.Out.Calls) < n {
			n = len(bp.Out.Calls)
		}
	calls:
		for i := 0; i < n; i++ {
			ic, oc := bp.In.Calls[i], bp.Out.Calls[i]
			switch {
			case !ic.Known && !oc.Known:
				// nothing to learn

			case ic.Known && oc.Known:
				name := pair.Input.CalleeName(ic)
				if name == "" {
					continue
				}
				if b, ok := binds.Lookup(name); ok && b.State == BindInline {
					// positional alignment is unsound past an inline
					break calls
				}
				out[name] = oc.Addr

			default:
				logrus.Infof("block: call mismatch %#x - %#x (potential inline?)",
					bp.In.Address.BlockAddr, bp.Out.Address.BlockAddr)
				break calls
			}
		}
	}
	return out
}

// callPairs pairs the incoming call sites of every named input function
// whose output address is already bound.
func callPairs(pair *ExecPair, binds *BindDB) []XrefPair {
	addrs := make([]uint64, 0, len(pair.Input.Fns))
	for addr := range pair.Input.Fns {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var pairs []XrefPair
	for _, addr := range addrs {
		fn := pair.Input.Fns[addr]
		if fn.Name == "" {
			continue
		}
		bound, ok := binds.AddrOf(fn.Name)
		if !ok {
			continue
		}
		outFn, ok := pair.Output.Fns[bound]
		if !ok {
			continue
		}
		pairs = append(pairs, XrefPair{In: fn.Xrefs, Out: outFn.Xrefs})
	}
	return pairs
}

// StringXref binds functions through string literals present in both
// binaries, pairing the reference sites of each shared literal.
func StringXref() Strategy {
	return Strategy{
		Name: "string_xref",
		Run: func(pair *ExecPair, binds *BindDB) map[string]uint64 {
			literals := make([]string, 0, len(pair.Input.Strings))
			for lit := range pair.Input.Strings {
				literals = append(literals, lit)
			}
			sort.Strings(literals)

			var pairs []XrefPair
			for _, lit := range literals {
				out, ok := pair.Output.Strings[lit]
				if !ok {
					continue
				}
				pairs = append(pairs, XrefPair{In: pair.Input.Strings[lit].Xrefs, Out: out.Xrefs})
			}
			return xrefBinds(binds, pair, pairs)
		},
	}
}

// CallXref binds callers of already-bound functions by pairing their
// incoming call sites.
func CallXref() Strategy {
	return Strategy{
		Name: "call_xref",
		Run: func(pair *ExecPair, binds *BindDB) map[string]uint64 {
			return xrefBinds(binds, pair, callPairs(pair, binds))
		},
	}
}

// CallBlock descends from the call sites of bound functions to the
// blocks containing them and mines those aligned blocks for further
// callee bindings. An input site aligns with an output site only when
// the output site's enclosing function is the bound address of the input
// site's enclosing function and that address is unique among the output
// sites; anything else is dropped for this round.
func CallBlock() Strategy {
	return Strategy{
		Name: "call_block",
		Run: func(pair *ExecPair, binds *BindDB) map[string]uint64 {
			var blocks []BlockPair
			for _, xp := range callPairs(pair, binds) {
				outBlocks := make([]*Block, 0, len(xp.Out))
				for _, addr := range xp.Out {
					if blk := pair.Output.BlockAt(addr); blk != nil {
						outBlocks = append(outBlocks, blk)
					}
				}
				for _, addr := range xp.In {
					caller, ok := pair.Input.Fns[addr.FunctionAddr]
					if !ok || caller.Name == "" {
						continue
					}
					bound, ok := binds.AddrOf(caller.Name)
					if !ok {
						continue
					}
					inBlk := pair.Input.BlockAt(addr)
					if inBlk == nil {
						continue
					}
					var match *Block
					unique := true
					for _, ob := range outBlocks {
						if ob.Address.FunctionAddr != bound {
							continue
						}
						if match != nil {
							unique = false
							break
						}
						match = ob
					}
					if match != nil && unique {
						blocks = append(blocks, BlockPair{In: inBlk, Out: match})
					}
				}
			}
			return blockBinds(binds, pair, blocks)
		},
	}
}

// BlockTraverse aligns the entry blocks of every bound function and
// walks both control-flow graphs in lockstep, harvesting callee
// bindings from every aligned pair along the way.
func BlockTraverse() Strategy {
	return Strategy{
		Name: "block_traverse",
		Run: func(pair *ExecPair, binds *BindDB) map[string]uint64 {
			entryByName := make(map[string]*Block)
			for _, fn := range pair.Input.Fns {
				if fn.Name == "" {
					continue
				}
				if entry := pair.Input.EntryBlock(fn); entry != nil {
					entryByName[fn.Name] = entry
				}
			}

			names := make([]string, 0, len(binds.Binds))
			for name := range binds.Binds {
				names = append(names, name)
			}
			sort.Strings(names)

			var start []BlockPair
			for _, name := range names {
				addr, ok := binds.AddrOf(name)
				if !ok {
					continue
				}
				inEntry, ok := entryByName[name]
				if !ok {
					continue
				}
				outFn, ok := pair.Output.Fns[addr]
				if !ok {
					continue
				}
				var outEntry *Block
				for i := range outFn.Blocks {
					if outFn.Blocks[i].Address.BlockAddr == addr {
						outEntry = &outFn.Blocks[i]
						break
					}
				}
				if outEntry == nil {
					continue
				}
				start = append(start, BlockPair{In: inEntry, Out: outEntry})
			}
			return blockBinds(binds, pair, traverseBlocks(binds, pair, start))
		},
	}
}
