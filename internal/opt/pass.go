package opt

import (
	"fmt"

	"ember/internal/ir"
)

// Pass is one function-level transformation. Run mutates f in place and
// reports whether anything changed; it must leave the graph consistent
// either way.
type Pass struct {
	Name string
	Run  func(f *ir.Func) bool
}

// DefaultPipeline is the standard pass order: elision first so its
// reachability reasoning sees the original CFG, then CFG cleanup, then
// dead-value sweeping for whatever the first two orphaned.
func DefaultPipeline() []Pass {
	return []Pass{
		{Name: "elide", Run: ElideConstructions},
		{Name: "simplify-cfg", Run: SimplifyCFG},
		{Name: "dce", Run: EliminateDeadValues},
	}
}

// Lookup resolves a pass by name.
func Lookup(name string) (Pass, error) {
	for _, p := range DefaultPipeline() {
		if p.Name == name {
			return p, nil
		}
	}
	return Pass{}, fmt.Errorf("unknown pass %q", name)
}
