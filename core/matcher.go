package core

// MatchBlock picks the unique output-binary candidate corresponding to
// the input block in, or nil when no unique match exists. The filter
// cascade: restrict to the already-bound enclosing function, then string
// equality, then call shape, then the intersection of both. The first
// stage with exactly one survivor wins.
func MatchBlock(binds *BindDB, pair *ExecPair, in *Block, candidates []*Block) *Block {
	// sanity: if the enclosing input function is already bound, only
	// candidates inside that output function can be right
	if fn, ok := pair.Input.Fns[in.Address.FunctionAddr]; ok && fn.Name != "" {
		if bound, ok := binds.AddrOf(fn.Name); ok {
			narrowed := make([]*Block, 0, len(candidates))
			for _, c := range candidates {
				if c.Address.FunctionAddr == bound {
					narrowed = append(narrowed, c)
				}
			}
			if len(narrowed) == 0 {
				return nil
			}
			if len(narrowed) == 1 {
				return narrowed[0]
			}
			candidates = narrowed
		}
	}

	var byStrings []*Block
	for _, c := range candidates {
		if stringsEqual(c.Strings, in.Strings) {
			byStrings = append(byStrings, c)
		}
	}
	if len(byStrings) == 1 {
		return byStrings[0]
	}

	var byCalls []*Block
	for _, c := range candidates {
		if callShapeCompatible(binds, pair, in, c) {
			byCalls = append(byCalls, c)
		}
	}
	if len(byCalls) == 1 {
		return byCalls[0]
	}

	var both []*Block
	for _, s := range byStrings {
		for _, c := range byCalls {
			if s == c {
				both = append(both, s)
				break
			}
		}
	}
	if len(both) == 1 {
		return both[0]
	}
	return nil
}

// callShapeCompatible reports whether out could be the counterpart of in
// judged by call lists alone: same arity, and pointwise either both
// unresolved or both resolved with the bind database unable to refute the
// pairing. An input callee with no entry in the database cannot be
// refuted and counts as compatible.
func callShapeCompatible(binds *BindDB, pair *ExecPair, in, out *Block) bool {
	if len(out.Calls) != len(in.Calls) {
		return false
	}
	for i := range in.Calls {
		ic, oc := in.Calls[i], out.Calls[i]
		switch {
		case !ic.Known && !oc.Known:
			// both unresolved, nothing to compare
		case ic.Known && oc.Known:
			name := pair.Input.CalleeName(ic)
			if name == "" {
				continue
			}
			b, ok := binds.Lookup(name)
			if !ok {
				continue
			}
			addr, ok := b.ResolvedAddr()
			if !ok || addr != oc.Addr {
				return false
			}
		default:
			return false
		}
	}
	return true
}
