package opt

import "ember/internal/ir"

// ElideConstructions removes copy/move-construction calls that only shuttle
// state out of a dying stack object, along with the destructor calls and
// lifetime plumbing of that object, and redirects every surviving use of the
// source allocation to the destination allocation. Returns whether the
// function changed.
//
// One candidate is applied before the next is checked, so each legality
// proof runs against the already-rewritten graph.
func ElideConstructions(f *ir.Func) bool {
	changed := false
	for _, ctor := range collectCtors(f) {
		// An earlier rewrite in this run may have restructured the graph
		// around a later candidate; reclassify before touching it.
		if classifyCall(f.Instr(ctor)) != callCtor {
			continue
		}
		plan, ok := canElide(f, ctor)
		if !ok {
			continue
		}
		apply(f, ctor, plan)
		changed = true
	}
	return changed
}

// callClass is the elision-level view of a call instruction.
type callClass uint8

const (
	callOther callClass = iota
	callCtor            // copy or move construction: dst, src
	callDtor            // destruction: obj
)

// classifyCall categorizes one instruction. The special-member tag is shared
// between the constructor and destructor families; argument arity is the
// sole disambiguator: two object arguments mean copy/move construction, one
// means destruction.
func classifyCall(in *ir.Instr) callClass {
	if in.Kind != ir.InstrCall || !in.Call.Special {
		return callOther
	}
	switch len(in.Args) {
	case 2:
		return callCtor
	case 1:
		return callDtor
	}
	return callOther
}

func isDtor(in *ir.Instr) bool {
	return classifyCall(in) == callDtor
}

// collectCtors walks every block once and gathers copy/move-construction
// calls in appearance order.
func collectCtors(f *ir.Func) []ir.ValueID {
	var ctors []ir.ValueID
	for i := range f.Blocks {
		for _, v := range f.Blocks[i].Instrs {
			if classifyCall(f.Instr(v)) == callCtor {
				ctors = append(ctors, v)
			}
		}
	}
	return ctors
}

// rewritePlan is valid only against the graph state it was computed from;
// the caller applies it before any other mutation.
type rewritePlan struct {
	From ir.ValueID // source allocation, to be folded away
	To   ir.ValueID // destination allocation, survives
	Dead []ir.ValueID
}

// canElide decides whether ctor can be removed. The proof: both operands
// must resolve to stack allocations, and every non-trivial use of the source
// allocation anywhere in the function must either be unreachable from the
// constructor, or be reachable from every destructor-equivalent that ends
// the source value's lifetime (so the use only observes storage whose old
// contents are already dead).
func canElide(f *ir.Func, ctor ir.ValueID) (rewritePlan, bool) {
	in := f.Instr(ctor)
	allocTo := ir.UnderlyingObject(f, in.Args[0])
	allocFrom := ir.UnderlyingObject(f, in.Args[1])
	immFrom := in.Args[1]

	// Automatic storage only; parameters, globals and anything else opaque
	// disqualify the candidate outright.
	if f.Instr(allocTo).Kind != ir.InstrAlloc || f.Instr(allocFrom).Kind != ir.InstrAlloc {
		return rewritePlan{}, false
	}

	immDtors := immediateDependentDtors(f, immFrom)

	var dead []ir.ValueID
	for _, u := range append([]ir.ValueID(nil), f.Users(allocFrom)...) {
		if u == ctor {
			continue
		}

		// Trivial plumbing is absorbed into the rewrite, not a conflict.
		if isTrivial(f, u) {
			collectDeadClosure(f, u, &dead)
			continue
		}

		if !ir.Reachable(f, ctor, u) {
			// No path from the construction to this use; no ordering
			// conflict is possible.
			continue
		}

		// The use runs after the construction on some path. It is only
		// safe if every lifetime end of the source value post-dates the
		// construction and still reaches the use; with no known lifetime
		// ends there is nothing to prove safety with.
		ok := false
		for _, d := range immDtors {
			ok = ir.Reachable(f, d, u)
			if !ok {
				break
			}
		}
		if !ok {
			return rewritePlan{}, false
		}
	}

	return rewritePlan{From: allocFrom, To: allocTo, Dead: dead}, true
}

// isTrivial reports whether in is irrelevant to elision legality: a
// destructor call, a lifetime bracket marker, or a pure reinterpretation all
// of whose consumers are transitively trivial. The closure runs forward over
// consumers, never backward over operands. Any other call, lifetime markers
// aside, is never trivial.
func isTrivial(f *ir.Func, v ir.ValueID) bool {
	return trivialClosure(f, v, make(map[ir.ValueID]bool))
}

func trivialClosure(f *ir.Func, v ir.ValueID, seen map[ir.ValueID]bool) bool {
	in := f.Instr(v)
	if isDtor(in) || in.Kind == ir.InstrLifetime {
		return true
	}
	if in.Kind != ir.InstrBitcast && in.Kind != ir.InstrFieldAddr {
		return false
	}
	seen[v] = true
	for _, u := range f.Users(v) {
		if seen[u] {
			continue
		}
		if !trivialClosure(f, u, seen) {
			return false
		}
	}
	return true
}

// collectDeadClosure appends v and, transitively, its consumers to list in
// definition-before-use order, so popping from the back erases consumers
// before the values they consume.
func collectDeadClosure(f *ir.Func, v ir.ValueID, list *[]ir.ValueID) {
	*list = append(*list, v)
	for _, u := range f.Users(v) {
		collectDeadClosure(f, u, list)
	}
}

// immediateDependentDtors collects the points at which the source value's
// lifetime provably ends as a consequence of v: direct destructor calls,
// direct lifetime-end markers, and one-hop reinterpretations whose single
// further consumer is one of those (the intermediate is reported). The hop
// depth is deliberately one; deeper reinterpretation chains do not register
// as lifetime ends.
func immediateDependentDtors(f *ir.Func, v ir.ValueID) []ir.ValueID {
	var dtors []ir.ValueID
	for _, u := range f.Users(v) {
		ui := f.Instr(u)
		switch {
		case isDtor(ui):
			dtors = append(dtors, u)
		case ui.Kind == ir.InstrLifetime && ui.Lifetime.End:
			dtors = append(dtors, u)
		case (ui.Kind == ir.InstrBitcast || ui.Kind == ir.InstrFieldAddr) && f.NumUsers(u) == 1:
			w := f.Instr(f.Users(u)[0])
			if isDtor(w) || (w.Kind == ir.InstrLifetime && w.Lifetime.End) {
				dtors = append(dtors, u)
			}
		}
	}
	return dtors
}

// apply erases the construction call and the collected dead instructions,
// consumers first, then folds the source allocation into the destination.
func apply(f *ir.Func, ctor ir.ValueID, plan rewritePlan) {
	work := append(append([]ir.ValueID(nil), plan.Dead...), ctor)
	erased := make(map[ir.ValueID]bool)
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		if erased[v] {
			continue
		}
		// Erase panics if consumers remain; that would mean the legality
		// proof was wrong, which is an internal-consistency defect.
		f.Erase(v)
		erased[v] = true
	}

	f.ReplaceAllUses(plan.From, plan.To)
	if f.NumUsers(plan.From) == 0 {
		f.Erase(plan.From)
	}
}
