package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// PrettyOpts configures Pretty output.
type PrettyOpts struct {
	Color bool
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	posColor  = color.New(color.Faint)
)

// Pretty writes every diagnostic in the bag, one per line:
//
//	file.eir:12: ERROR[E0001] unexpected token "=>"
func Pretty(w io.Writer, b *Bag, opts PrettyOpts) {
	if b == nil {
		return
	}
	b.Sort()
	for _, d := range b.Items() {
		sev := d.Severity.String()
		pos := ""
		if d.Pos.File != "" || d.Pos.Line > 0 {
			pos = fmt.Sprintf("%s:%d: ", d.Pos.File, d.Pos.Line)
		}
		if opts.Color {
			pos = posColor.Sprint(pos)
			switch d.Severity {
			case SevError:
				sev = errColor.Sprint(sev)
			case SevWarning:
				sev = warnColor.Sprint(sev)
			default:
				sev = infoColor.Sprint(sev)
			}
		}
		fmt.Fprintf(w, "%s%s[%s] %s\n", pos, sev, d.Code, d.Message)
	}
}
