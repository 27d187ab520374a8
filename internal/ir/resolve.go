package ir

// UnderlyingObject walks the chain of pure reinterpretation operations
// (bitcast, fieldaddr) backing v and returns the first instruction that is
// not one. Callers that need automatic storage must check the result's kind
// for InstrAlloc themselves. Terminates on any well-formed graph: def-use
// edges are acyclic because every value is defined once.
func UnderlyingObject(f *Func, v ValueID) ValueID {
	for {
		in := f.Instr(v)
		switch in.Kind {
		case InstrBitcast, InstrFieldAddr:
			v = in.Args[0]
		default:
			return v
		}
	}
}
