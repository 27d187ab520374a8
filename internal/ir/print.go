package ir

import (
	"fmt"
	"io"
	"strings"
)

// DumpModule writes a parseable, human-readable representation of m.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	for i, f := range m.Funcs {
		if f == nil {
			continue
		}
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := DumpFunc(w, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function in the textual format.
func DumpFunc(w io.Writer, f *Func) error {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = f.ref(p)
	}
	if _, err := fmt.Fprintf(w, "func @%s(%s) {\n", f.Name, strings.Join(params, ", ")); err != nil {
		return err
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if _, err := fmt.Fprintf(w, "bb%d:\n", bb.ID); err != nil {
			return err
		}
		for _, v := range bb.Instrs {
			if _, err := fmt.Fprintf(w, "  %s\n", f.formatInstr(v)); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// ref renders a value reference, falling back to %vN for unnamed values.
func (f *Func) ref(v ValueID) string {
	if name := f.Instr(v).Name; name != "" {
		return "%" + name
	}
	return fmt.Sprintf("%%v%d", v)
}

func (f *Func) formatInstr(v ValueID) string {
	in := f.Instr(v)
	switch in.Kind {
	case InstrAlloc:
		return fmt.Sprintf("%s = alloc %s", f.ref(v), in.Alloc.Type)
	case InstrBitcast:
		return fmt.Sprintf("%s = bitcast %s", f.ref(v), f.ref(in.Args[0]))
	case InstrFieldAddr:
		return fmt.Sprintf("%s = fieldaddr %s %d", f.ref(v), f.ref(in.Args[0]), in.Field.Index)
	case InstrLifetime:
		which := "start"
		if in.Lifetime.End {
			which = "end"
		}
		return fmt.Sprintf("lifetime.%s %s", which, f.ref(in.Args[0]))
	case InstrLoad:
		return fmt.Sprintf("%s = load %s", f.ref(v), f.ref(in.Args[0]))
	case InstrStore:
		return fmt.Sprintf("store %s %s", f.ref(in.Args[0]), f.ref(in.Args[1]))
	case InstrCall:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = f.ref(a)
		}
		s := fmt.Sprintf("call @%s(%s)", in.Call.Callee, strings.Join(args, ", "))
		if in.Name != "" || f.NumUsers(v) > 0 {
			s = f.ref(v) + " = " + s
		}
		if in.Call.Special {
			s += " !sm"
		}
		return s
	case InstrReturn:
		if len(in.Args) > 0 {
			return "ret " + f.ref(in.Args[0])
		}
		return "ret"
	case InstrGoto:
		return fmt.Sprintf("goto bb%d", in.Goto.Target)
	case InstrIf:
		return fmt.Sprintf("if %s bb%d bb%d", f.ref(in.Args[0]), in.If.Then, in.If.Else)
	case InstrUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("<%s>", in.Kind)
}
