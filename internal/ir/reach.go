package ir

// Reachable reports whether control flow can proceed from instruction a to
// instruction b, through any path including back-edges. Within one block the
// answer is positional; across blocks it is a breadth-first search over
// successor edges starting from a's successors, so a block can reach itself
// through a loop. The search is bounded by the block count.
func Reachable(f *Func, a, b ValueID) bool {
	ia, ib := f.Instr(a), f.Instr(b)
	if ia.Block == NoBlock || ib.Block == NoBlock {
		// Parameters are not program points.
		return false
	}

	if ia.Block == ib.Block && blockIndex(f, a) < blockIndex(f, b) {
		return true
	}

	// Search the CFG from a's successors. Reaching b's block at its top
	// reaches b regardless of b's position in it.
	seen := make([]bool, len(f.Blocks))
	work := append([]BlockID(nil), f.Successors(ia.Block)...)
	for len(work) > 0 {
		blk := work[0]
		work = work[1:]
		if seen[blk] {
			continue
		}
		seen[blk] = true
		if blk == ib.Block {
			return true
		}
		work = append(work, f.Successors(blk)...)
	}
	return false
}

func blockIndex(f *Func, v ValueID) int {
	blk := &f.Blocks[f.Instr(v).Block]
	for i, iv := range blk.Instrs {
		if iv == v {
			return i
		}
	}
	panic("ir: instruction not present in its block")
}
