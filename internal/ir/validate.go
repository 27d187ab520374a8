package ir

import (
	"errors"
	"fmt"
)

// Validate checks module graph invariants.
// Returns an error joining every violation found.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function's graph invariants:
//  1. every block ends in exactly one terminator, at the end
//  2. branch targets are in range
//  3. operands reference live (non-erased) values
//  4. consumer lists mirror operand edges exactly, with multiplicity
//  5. block membership matches each instruction's Block field
func ValidateFunc(f *Func) error {
	var errs []error

	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateOperands(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateUseLists(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateMembership(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if !bb.Terminated(f) {
			errs = append(errs, fmt.Errorf("bb%d: not terminated", bb.ID))
			continue
		}
		for _, v := range bb.Instrs[:len(bb.Instrs)-1] {
			if f.Instr(v).Kind.IsTerminator() {
				errs = append(errs, fmt.Errorf("bb%d: terminator %%v%d in block body", bb.ID, v))
			}
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	inRange := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}
	var errs []error
	if len(f.Blocks) > 0 && !inRange(f.Entry) {
		errs = append(errs, fmt.Errorf("entry bb%d out of range", f.Entry))
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) == 0 {
			continue
		}
		term := f.Instr(bb.Instrs[len(bb.Instrs)-1])
		switch term.Kind {
		case InstrGoto:
			if !inRange(term.Goto.Target) {
				errs = append(errs, fmt.Errorf("bb%d: goto target bb%d out of range", bb.ID, term.Goto.Target))
			}
		case InstrIf:
			if !inRange(term.If.Then) {
				errs = append(errs, fmt.Errorf("bb%d: then target bb%d out of range", bb.ID, term.If.Then))
			}
			if !inRange(term.If.Else) {
				errs = append(errs, fmt.Errorf("bb%d: else target bb%d out of range", bb.ID, term.If.Else))
			}
		}
	}
	return errors.Join(errs...)
}

func validateOperands(f *Func) error {
	var errs []error
	for v := 0; v < f.NumValues(); v++ {
		in := f.Instr(ValueID(v))
		if in.Kind == InstrInvalid {
			continue
		}
		for _, arg := range in.Args {
			if arg < 0 || int(arg) >= f.NumValues() {
				errs = append(errs, fmt.Errorf("%%v%d: operand %%v%d out of range", v, arg))
				continue
			}
			if f.Instr(arg).Kind == InstrInvalid {
				errs = append(errs, fmt.Errorf("%%v%d: operand %%v%d refers to an erased instruction", v, arg))
			}
		}
	}
	return errors.Join(errs...)
}

// validateUseLists cross-checks operand edges against consumer lists in both
// directions, counting multiplicity.
func validateUseLists(f *Func) error {
	type edge struct{ def, user ValueID }
	fromArgs := make(map[edge]int)
	fromUsers := make(map[edge]int)

	for v := 0; v < f.NumValues(); v++ {
		id := ValueID(v)
		in := f.Instr(id)
		if in.Kind == InstrInvalid {
			continue
		}
		for _, arg := range in.Args {
			if arg >= 0 && int(arg) < f.NumValues() {
				fromArgs[edge{arg, id}]++
			}
		}
		for _, u := range in.users {
			fromUsers[edge{id, u}]++
		}
	}

	var errs []error
	for e, n := range fromArgs {
		if fromUsers[e] != n {
			errs = append(errs, fmt.Errorf("%%v%d: user list records %d edges from %%v%d, operands record %d",
				e.def, fromUsers[e], e.user, n))
		}
	}
	for e, n := range fromUsers {
		if fromArgs[e] != n {
			errs = append(errs, fmt.Errorf("%%v%d: stale consumer edge to %%v%d (%d recorded, %d real)",
				e.def, e.user, n, fromArgs[e]))
		}
	}
	return errors.Join(errs...)
}

func validateMembership(f *Func) error {
	owner := make(map[ValueID]BlockID)
	var errs []error
	for i := range f.Blocks {
		for _, v := range f.Blocks[i].Instrs {
			if prev, ok := owner[v]; ok {
				errs = append(errs, fmt.Errorf("%%v%d: listed in both bb%d and bb%d", v, prev, f.Blocks[i].ID))
				continue
			}
			owner[v] = f.Blocks[i].ID
			in := f.Instr(v)
			if in.Kind == InstrInvalid {
				errs = append(errs, fmt.Errorf("bb%d: erased instruction %%v%d still listed", f.Blocks[i].ID, v))
			} else if in.Block != f.Blocks[i].ID {
				errs = append(errs, fmt.Errorf("%%v%d: Block field says bb%d, listed in bb%d", v, in.Block, f.Blocks[i].ID))
			}
		}
	}
	for v := 0; v < f.NumValues(); v++ {
		in := f.Instr(ValueID(v))
		if in.Kind == InstrInvalid || in.Kind == InstrParam {
			continue
		}
		if _, ok := owner[ValueID(v)]; !ok {
			errs = append(errs, fmt.Errorf("%%v%d: live instruction not listed in any block", v))
		}
	}
	return errors.Join(errs...)
}
