package ir

// Module is an ordered collection of functions, the unit the driver and the
// textual format work with.
type Module struct {
	Funcs []*Func
}

// FuncByName returns the named function or nil.
func (m *Module) FuncByName(name string) *Func {
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}
