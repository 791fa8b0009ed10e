package core

// traverseBlocks walks two control-flow graphs in lockstep,
// breadth-first, starting from the given aligned pairs. Successors are
// enqueued pairwise per branch shape; any shape mismatch or unresolved
// destination ends that path. A pair whose input block calls an
// Inline-bound symbol is kept but its children are not explored, since
// the output CFG has diverged below it. Each (input, output) pair is
// visited at most once so cyclic graphs terminate.
func traverseBlocks(binds *BindDB, pair *ExecPair, start []BlockPair) []BlockPair {
	type visit struct{ in, out uint64 }
	seen := make(map[visit]bool)

	var total []BlockPair
	current := start

	for len(current) > 0 {
		var next []BlockPair
		for _, bp := range current {
			v := visit{bp.In.Address.BlockAddr, bp.Out.Address.BlockAddr}
			if seen[v] {
				continue
			}
			seen[v] = true
			total = append(total, bp)

			if callsInline(binds, pair, bp.In) {
				continue
			}

			inB, outB := bp.In.Branch, bp.Out.Branch
			if inB.Kind != outB.Kind {
				continue
			}
			switch inB.Kind {
			case BranchNeutral:
				if child, ok := alignChildren(pair, bp, inB.A, outB.A); ok {
					next = append(next, child)
				}
			case BranchEquality, BranchInequality:
				if child, ok := alignChildren(pair, bp, inB.A, outB.A); ok {
					next = append(next, child)
				}
				if child, ok := alignChildren(pair, bp, inB.B, outB.B); ok {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	return total
}

// alignChildren resolves one successor pair within the enclosing
// functions of the current pair. Both destinations must be known and
// resolvable.
func alignChildren(pair *ExecPair, bp BlockPair, in, out Dest) (BlockPair, bool) {
	if !in.Known || !out.Known {
		return BlockPair{}, false
	}
	inBlk := pair.Input.BlockIn(bp.In.Address.FunctionAddr, in.Addr)
	outBlk := pair.Output.BlockIn(bp.Out.Address.FunctionAddr, out.Addr)
	if inBlk == nil || outBlk == nil {
		return BlockPair{}, false
	}
	return BlockPair{In: inBlk, Out: outBlk}, true
}

// callsInline reports whether any resolved callee of the block is bound
// Inline.
func callsInline(binds *BindDB, pair *ExecPair, blk *Block) bool {
	for _, call := range blk.Calls {
		name := pair.Input.CalleeName(call)
		if name == "" {
			continue
		}
		if b, ok := binds.Lookup(name); ok && b.State == BindInline {
			return true
		}
	}
	return false
}
