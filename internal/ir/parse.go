package ir

import (
	"fmt"
	"strconv"
	"strings"

	"ember/internal/diag"
)

// ParseModule parses the textual .eir format. Syntax problems are reported
// into bag with file/line positions; the returned module contains every
// function that parsed cleanly. Value definitions must textually precede
// their uses; block labels may be referenced forward within a function.
func ParseModule(filename string, src []byte, bag *diag.Bag) *Module {
	p := &parser{file: filename, bag: bag}
	p.lines = strings.Split(string(src), "\n")
	return p.parseModule()
}

type parser struct {
	file  string
	bag   *diag.Bag
	lines []string
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.bag.Error(diag.CodeParse, diag.Pos{File: p.file, Line: line}, fmt.Sprintf(format, args...))
}

func (p *parser) parseModule() *Module {
	m := &Module{}
	for i := 0; i < len(p.lines); {
		text := stripComment(p.lines[i])
		if text == "" {
			i++
			continue
		}
		if strings.HasPrefix(text, "func ") {
			f, next := p.parseFunc(i)
			if f != nil {
				m.Funcs = append(m.Funcs, f)
			}
			i = next
			continue
		}
		p.errorf(i+1, "expected function definition, got %q", text)
		i++
	}
	return m
}

func stripComment(s string) string {
	if idx := strings.Index(s, "#"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// parseFunc parses one "func @name(...) { ... }" span starting at line i.
// Returns the function (nil on failure) and the line index after it.
func (p *parser) parseFunc(i int) (*Func, int) {
	before := p.bag.Len()
	header := stripComment(p.lines[i])
	name, params, ok := splitFuncHeader(header)
	if !ok {
		p.errorf(i+1, "malformed function header %q", header)
		return nil, i + 1
	}

	// Find the closing brace.
	end := -1
	for j := i + 1; j < len(p.lines); j++ {
		if stripComment(p.lines[j]) == "}" {
			end = j
			break
		}
	}
	if end < 0 {
		p.errorf(i+1, "function @%s: missing closing brace", name)
		return nil, len(p.lines)
	}

	f := NewFunc(name)
	fp := &funcParser{parser: p, f: f, values: make(map[string]ValueID), labels: make(map[string]BlockID)}
	for _, param := range params {
		pn, ok := valueName(param)
		if !ok {
			p.errorf(i+1, "function @%s: malformed parameter %q", name, param)
			continue
		}
		if _, dup := fp.values[pn]; dup {
			p.bag.Error(diag.CodeRedefinition, diag.Pos{File: p.file, Line: i + 1},
				fmt.Sprintf("function @%s: duplicate parameter %%%s", name, pn))
			continue
		}
		fp.values[pn] = f.AddParam(pn)
	}

	// First sweep: register labels so branches may reference them forward.
	for j := i + 1; j < end; j++ {
		text := stripComment(p.lines[j])
		if label, ok := strings.CutSuffix(text, ":"); ok && text != "" {
			if _, dup := fp.labels[label]; dup {
				p.bag.Error(diag.CodeRedefinition, diag.Pos{File: p.file, Line: j + 1},
					fmt.Sprintf("duplicate label %s", label))
				continue
			}
			fp.labels[label] = f.AddBlock()
		}
	}

	cur := NoBlock
	for j := i + 1; j < end; j++ {
		text := stripComment(p.lines[j])
		if text == "" {
			continue
		}
		if label, ok := strings.CutSuffix(text, ":"); ok {
			cur = fp.labels[label]
			continue
		}
		if cur == NoBlock {
			p.errorf(j+1, "instruction before first block label")
			continue
		}
		fp.parseInstr(j+1, cur, text)
	}

	if p.bag.Len() > before {
		return nil, end + 1
	}
	return f, end + 1
}

// splitFuncHeader pulls the name and parameter list out of
// "func @name(%a, %b) {".
func splitFuncHeader(s string) (name string, params []string, ok bool) {
	s, found := strings.CutPrefix(s, "func @")
	if !found || !strings.HasSuffix(s, "{") {
		return "", nil, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "{"))
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	name = s[:open]
	if name == "" {
		return "", nil, false
	}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner != "" {
		for _, part := range strings.Split(inner, ",") {
			params = append(params, strings.TrimSpace(part))
		}
	}
	return name, params, true
}

func valueName(tok string) (string, bool) {
	name, ok := strings.CutPrefix(tok, "%")
	return name, ok && name != ""
}

type funcParser struct {
	*parser
	f      *Func
	values map[string]ValueID
	labels map[string]BlockID
}

func (fp *funcParser) lookup(line int, tok string) (ValueID, bool) {
	name, ok := valueName(tok)
	if !ok {
		fp.errorf(line, "expected value reference, got %q", tok)
		return NoValue, false
	}
	v, ok := fp.values[name]
	if !ok {
		fp.bag.Error(diag.CodeUndefinedValue, diag.Pos{File: fp.file, Line: line},
			fmt.Sprintf("undefined value %%%s", name))
		return NoValue, false
	}
	return v, true
}

func (fp *funcParser) lookupBlock(line int, tok string) (BlockID, bool) {
	id, ok := fp.labels[tok]
	if !ok {
		fp.bag.Error(diag.CodeUndefinedBlock, diag.Pos{File: fp.file, Line: line},
			fmt.Sprintf("undefined label %s", tok))
		return NoBlock, false
	}
	return id, true
}

func (fp *funcParser) define(line int, name string, v ValueID) {
	if _, dup := fp.values[name]; dup {
		fp.bag.Error(diag.CodeRedefinition, diag.Pos{File: fp.file, Line: line},
			fmt.Sprintf("redefinition of %%%s", name))
		return
	}
	fp.values[name] = v
}

func (fp *funcParser) parseInstr(line int, b BlockID, text string) {
	// "%x = rest" or bare instruction.
	dest := ""
	if rest, found := strings.CutPrefix(text, "%"); found {
		eq := strings.Index(rest, "=")
		if eq < 0 {
			fp.errorf(line, "result value without %q in %q", "=", text)
			return
		}
		dest = strings.TrimSpace(rest[:eq])
		text = strings.TrimSpace(rest[eq+1:])
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		fp.errorf(line, "empty instruction")
		return
	}
	op := fields[0]

	needDest := func() bool {
		if dest == "" {
			fp.errorf(line, "%s requires a result value", op)
			return false
		}
		return true
	}
	noDest := func() bool {
		if dest != "" {
			fp.errorf(line, "%s does not produce a result", op)
			return false
		}
		return true
	}

	switch op {
	case "alloc":
		if !needDest() || !fp.expectArity(line, op, fields, 2) {
			return
		}
		fp.define(line, dest, fp.f.EmitAlloc(b, dest, fields[1]))
	case "bitcast":
		if !needDest() || !fp.expectArity(line, op, fields, 2) {
			return
		}
		src, ok := fp.lookup(line, fields[1])
		if !ok {
			return
		}
		fp.define(line, dest, fp.f.EmitBitcast(b, dest, src))
	case "fieldaddr":
		if !needDest() || !fp.expectArity(line, op, fields, 3) {
			return
		}
		base, ok := fp.lookup(line, fields[1])
		if !ok {
			return
		}
		idx, err := strconv.Atoi(fields[2])
		if err != nil {
			fp.errorf(line, "fieldaddr index %q is not a number", fields[2])
			return
		}
		fp.define(line, dest, fp.f.EmitFieldAddr(b, dest, base, idx))
	case "load":
		if !needDest() || !fp.expectArity(line, op, fields, 2) {
			return
		}
		addr, ok := fp.lookup(line, fields[1])
		if !ok {
			return
		}
		fp.define(line, dest, fp.f.EmitLoad(b, dest, addr))
	case "store":
		if !noDest() || !fp.expectArity(line, op, fields, 3) {
			return
		}
		addr, ok1 := fp.lookup(line, fields[1])
		val, ok2 := fp.lookup(line, fields[2])
		if !ok1 || !ok2 {
			return
		}
		fp.f.EmitStore(b, addr, val)
	case "lifetime.start", "lifetime.end":
		if !noDest() || !fp.expectArity(line, op, fields, 2) {
			return
		}
		obj, ok := fp.lookup(line, fields[1])
		if !ok {
			return
		}
		fp.f.EmitLifetime(b, op == "lifetime.end", obj)
	case "call":
		fp.parseCall(line, b, dest, text)
	case "ret":
		if !noDest() {
			return
		}
		switch len(fields) {
		case 1:
			fp.f.EmitReturn(b, NoValue)
		case 2:
			v, ok := fp.lookup(line, fields[1])
			if !ok {
				return
			}
			fp.f.EmitReturn(b, v)
		default:
			fp.errorf(line, "ret takes at most one operand")
		}
	case "goto":
		if !noDest() || !fp.expectArity(line, op, fields, 2) {
			return
		}
		target, ok := fp.lookupBlock(line, fields[1])
		if !ok {
			return
		}
		fp.f.EmitGoto(b, target)
	case "if":
		if !noDest() || !fp.expectArity(line, op, fields, 4) {
			return
		}
		cond, ok := fp.lookup(line, fields[1])
		if !ok {
			return
		}
		then, ok1 := fp.lookupBlock(line, fields[2])
		els, ok2 := fp.lookupBlock(line, fields[3])
		if !ok1 || !ok2 {
			return
		}
		fp.f.EmitIf(b, cond, then, els)
	case "unreachable":
		if !noDest() || !fp.expectArity(line, op, fields, 1) {
			return
		}
		fp.f.EmitUnreachable(b)
	default:
		fp.errorf(line, "unknown instruction %q", op)
	}
}

func (fp *funcParser) expectArity(line int, op string, fields []string, n int) bool {
	if len(fields) != n {
		fp.errorf(line, "%s takes %d tokens, got %d", op, n, len(fields))
		return false
	}
	return true
}

// parseCall handles "call @callee(%a, %b) [!sm]".
func (fp *funcParser) parseCall(line int, b BlockID, dest, text string) {
	rest, found := strings.CutPrefix(text, "call @")
	if !found {
		fp.errorf(line, "malformed call %q", text)
		return
	}
	special := false
	if s, cut := strings.CutSuffix(strings.TrimSpace(rest), "!sm"); cut {
		special = true
		rest = strings.TrimSpace(s)
	}
	open := strings.Index(rest, "(")
	if open <= 0 || !strings.HasSuffix(rest, ")") {
		fp.errorf(line, "malformed call %q", text)
		return
	}
	callee := rest[:open]
	inner := strings.TrimSpace(rest[open+1 : len(rest)-1])

	var args []ValueID
	if inner != "" {
		for _, part := range strings.Split(inner, ",") {
			v, ok := fp.lookup(line, strings.TrimSpace(part))
			if !ok {
				return
			}
			args = append(args, v)
		}
	}
	v := fp.f.EmitCall(b, callee, special, args...)
	if dest != "" {
		fp.f.Instr(v).Name = dest
		fp.define(line, dest, v)
	}
}
