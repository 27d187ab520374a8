package opt

import "ember/internal/ir"

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
//  1. Collapse chains through trivial goto blocks (single goto instruction)
//  2. Remove unreachable blocks
//  3. Compact and renumber blocks deterministically
//
// Returns whether the function changed.
func SimplifyCFG(f *ir.Func) bool {
	if f == nil || len(f.Blocks) == 0 {
		return false
	}

	redirects := buildRedirectMap(f)
	changed := applyRedirects(f, redirects)

	reachable := computeReachability(f)
	return compactBlocks(f, reachable) || changed
}

// buildRedirectMap finds all trivial goto blocks and maps their IDs to their
// final targets, following chains.
func buildRedirectMap(f *ir.Func) map[ir.BlockID]ir.BlockID {
	redirects := make(map[ir.BlockID]ir.BlockID)

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if !isTrivialGotoBlock(f, bb.ID) {
			continue
		}
		target := gotoTarget(f, bb.ID)
		visited := make(map[ir.BlockID]bool)
		for !visited[target] {
			visited[target] = true

			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialGotoBlock(f, target) {
				target = gotoTarget(f, target)
				continue
			}
			break
		}
		redirects[bb.ID] = target
	}
	return redirects
}

// isTrivialGotoBlock checks whether a block consists of a lone goto.
func isTrivialGotoBlock(f *ir.Func, id ir.BlockID) bool {
	if id < 0 || int(id) >= len(f.Blocks) {
		return false
	}
	bb := &f.Blocks[id]
	return len(bb.Instrs) == 1 && f.Instr(bb.Instrs[0]).Kind == ir.InstrGoto
}

func gotoTarget(f *ir.Func, id ir.BlockID) ir.BlockID {
	bb := &f.Blocks[id]
	return f.Instr(bb.Instrs[len(bb.Instrs)-1]).Goto.Target
}

// applyRedirects updates all terminators (and the entry) to skip trivial
// goto blocks. A block is never redirected into itself.
func applyRedirects(f *ir.Func, redirects map[ir.BlockID]ir.BlockID) bool {
	if len(redirects) == 0 {
		return false
	}

	changed := false
	redirect := func(id ir.BlockID) ir.BlockID {
		if newID, ok := redirects[id]; ok && newID != id {
			changed = true
			return newID
		}
		return id
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) == 0 {
			continue
		}
		term := f.Instr(bb.Instrs[len(bb.Instrs)-1])
		switch term.Kind {
		case ir.InstrGoto:
			term.Goto.Target = redirect(term.Goto.Target)
		case ir.InstrIf:
			term.If.Then = redirect(term.If.Then)
			term.If.Else = redirect(term.If.Else)
		}
	}

	f.Entry = redirect(f.Entry)
	return changed
}

// computeReachability performs a DFS from the entry block.
func computeReachability(f *ir.Func) []bool {
	reachable := make([]bool, len(f.Blocks))

	var visit func(id ir.BlockID)
	visit = func(id ir.BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) || reachable[id] {
			return
		}
		reachable[id] = true
		for _, succ := range f.Successors(id) {
			visit(succ)
		}
	}

	visit(f.Entry)
	return reachable
}

// compactBlocks removes unreachable blocks, erases their instructions, and
// renumbers the survivors.
func compactBlocks(f *ir.Func, reachable []bool) bool {
	count := 0
	for _, r := range reachable {
		if r {
			count++
		}
	}
	if count == len(f.Blocks) {
		return false
	}

	// Erase the dying instructions first so no consumer edge survives into
	// the compacted graph. ID order is not erase order: use redirection can
	// leave a user with a smaller ID than its definition. Sweep the set,
	// erasing whatever has zero consumers, until it drains.
	var dying []ir.ValueID
	for id, keep := range reachable {
		if keep {
			continue
		}
		dying = append(dying, f.Blocks[id].Instrs...)
	}
	for len(dying) > 0 {
		progressed := false
		rest := dying[:0]
		for _, v := range dying {
			if f.NumUsers(v) == 0 {
				f.Erase(v)
				progressed = true
			} else {
				rest = append(rest, v)
			}
		}
		dying = rest
		if !progressed {
			// Every survivor is consumed from live code: the input was
			// not def-dominated. Erasing one surfaces the offender.
			f.Erase(dying[0])
		}
	}

	oldToNew := make(map[ir.BlockID]ir.BlockID)
	newBlocks := make([]ir.Block, 0, count)
	for i, keep := range reachable {
		if keep {
			oldToNew[ir.BlockID(i)] = ir.BlockID(len(newBlocks))
			newBlocks = append(newBlocks, f.Blocks[i])
		}
	}

	remap := func(id ir.BlockID) ir.BlockID {
		if newID, ok := oldToNew[id]; ok {
			return newID
		}
		return id // unreachable if reachability is correct
	}

	for i := range newBlocks {
		newBlocks[i].ID = ir.BlockID(i)
		for _, v := range newBlocks[i].Instrs {
			in := f.Instr(v)
			in.Block = ir.BlockID(i)
			switch in.Kind {
			case ir.InstrGoto:
				in.Goto.Target = remap(in.Goto.Target)
			case ir.InstrIf:
				in.If.Then = remap(in.If.Then)
				in.If.Else = remap(in.If.Else)
			}
		}
	}

	f.Blocks = newBlocks
	f.Entry = remap(f.Entry)
	return true
}
