// Package asm reads and writes method bodies in a line-oriented text form:
//
//	# comment
//	method demo/FooKt.foo ()Ljava/lang/Object; stack=2 locals=1
//	  iconst 0
//	  ldc "T"
//	  invokestatic kotlin/jvm/internal/Intrinsics.reifiedOperationMarker (ILjava/lang/String;)V
//	  ifnull L1
//	  label L1
//	  ldc type:Ljava/lang/String;
//	end
//
// Output of Format parses back to the same instructions.
package asm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"reify/internal/bc"
	"reify/internal/diag"
)

// ParseFile reads and parses the file at path.
func ParseFile(path string) ([]*bc.Method, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	return Parse(path, string(src))
}

// Parse reads every method of src. name is used in error positions. Parsing
// continues after errors; the methods parsed so far are returned together
// with an ErrorList.
func Parse(name, src string) ([]*bc.Method, error) {
	p := &parser{file: name, seen: make(map[string]int)}
	for i, line := range strings.Split(src, "\n") {
		p.line = i + 1
		p.parseLine(strings.TrimRight(line, "\r"))
	}
	if p.cur != nil {
		p.errorf(diag.AsmUnterminatedBody, "method %s is missing 'end'", p.cur.QualifiedName())
		p.finish()
	}
	if len(p.errs) > 0 {
		return p.methods, p.errs
	}
	return p.methods, nil
}

type parser struct {
	file string
	line int

	methods []*bc.Method
	seen    map[string]int // qualified name -> header line
	errs    ErrorList

	cur     *bc.Method
	labels  map[string]bc.LabelID
	defined map[string]bool
}

func (p *parser) errorf(code diag.Code, format string, args ...any) {
	p.errs = append(p.errs, &Error{File: p.file, Line: p.line, Code: code, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) finish() {
	p.methods = append(p.methods, p.cur)
	p.cur = nil
	p.labels = nil
	p.defined = nil
}

func (p *parser) parseLine(line string) {
	text, err := stripComment(line)
	if err != nil {
		p.errorf(diag.AsmUnterminatedQuote, "%v", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	mnemonic, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch {
	case mnemonic == "method":
		p.parseHeader(rest)
	case p.cur == nil:
		p.errorf(diag.AsmSyntax, "%q outside of a method", mnemonic)
	case mnemonic == "end":
		if rest != "" {
			p.errorf(diag.AsmSyntax, "unexpected %q after end", rest)
		}
		p.finish()
	default:
		p.parseInstr(mnemonic, rest)
	}
}

// stripComment cuts line at the first '#' outside a string literal.
func stripComment(line string) (string, error) {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case inQuote && c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case !inQuote && c == '#':
			return line[:i], nil
		}
	}
	if inQuote {
		return "", errors.New("unterminated string literal")
	}
	return line, nil
}

func (p *parser) parseHeader(rest string) {
	if p.cur != nil {
		p.errorf(diag.AsmUnterminatedBody, "method %s is missing 'end'", p.cur.QualifiedName())
		p.finish()
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		p.errorf(diag.AsmSyntax, "method header without a name")
		return
	}
	m := &bc.Method{Code: bc.NewList()}
	m.Owner, m.Name = splitMember(fields[0])
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			if m.Desc != "" {
				p.errorf(diag.AsmSyntax, "unexpected %q in method header", f)
				continue
			}
			if _, _, err := bc.ParseMethodDesc(f); err != nil {
				p.errorf(diag.AsmBadOperand, "method descriptor: %v", err)
			}
			m.Desc = f
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			p.errorf(diag.AsmBadOperand, "%s must be a non-negative integer, got %q", key, value)
			continue
		}
		switch key {
		case "stack":
			m.MaxStack = n
		case "locals":
			m.MaxLocals = n
		default:
			p.errorf(diag.AsmSyntax, "unknown method attribute %q", key)
		}
	}
	qn := m.QualifiedName()
	if prev, dup := p.seen[qn]; dup {
		p.errorf(diag.AsmDuplicateMethod, "method %s already defined at line %d", qn, prev)
	} else {
		p.seen[qn] = p.line
	}
	p.cur = m
	p.labels = make(map[string]bc.LabelID)
	p.defined = make(map[string]bool)
}

// splitMember splits "owner.name" at the last dot.
func splitMember(s string) (owner, name string) {
	if i := strings.LastIndexByte(s, '.'); i > 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func (p *parser) label(name string) bc.LabelID {
	if id, ok := p.labels[name]; ok {
		return id
	}
	id := p.cur.Code.NewLabel()
	p.labels[name] = id
	return id
}

func (p *parser) parseInstr(mnemonic, rest string) {
	op, ok := bc.LookupOpcode(mnemonic)
	if !ok {
		p.errorf(diag.AsmUnknownOpcode, "unknown opcode %q", mnemonic)
		return
	}
	ins := bc.Instr{Op: op}
	var err error
	switch {
	case op == bc.OpLdc:
		ins.Const, err = parseConst(rest)
	case op == bc.OpIConst:
		ins.Int, err = parseInt32(rest)
	case op == bc.OpLabel || op.IsJump():
		if err = expectWord(rest, "label"); err == nil {
			if op == bc.OpLabel {
				if p.defined[rest] {
					p.errorf(diag.AsmBadOperand, "label %s defined twice", rest)
					return
				}
				p.defined[rest] = true
			}
			ins.Label = p.label(rest)
		}
	case op.IsVarInsn():
		ins.Var, err = strconv.Atoi(rest)
		if err == nil && ins.Var < 0 {
			err = fmt.Errorf("negative local %d", ins.Var)
		}
	case op.IsTypeInsn():
		err = expectWord(rest, "type name")
		ins.Type = rest
	case op.IsInvoke() || op.IsFieldInsn():
		ins.Owner, ins.Name, ins.Desc, err = parseMember(op, rest)
	default:
		if rest != "" {
			err = fmt.Errorf("%s takes no operand", op)
		}
	}
	if err != nil {
		p.errorf(diag.AsmBadOperand, "%s: %v", op, err)
		return
	}
	p.cur.Code.Append(ins)
}

func expectWord(s, what string) error {
	if s == "" {
		return fmt.Errorf("missing %s", what)
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("malformed %s %q", what, s)
	}
	return nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed integer %q", s)
	}
	return safecast.Conv[int32](v)
}

func parseConst(s string) (bc.Const, error) {
	switch {
	case strings.HasPrefix(s, `"`):
		lit, err := strconv.QuotedPrefix(s)
		if err != nil {
			return bc.Const{}, fmt.Errorf("malformed string literal %s", s)
		}
		if tail := strings.TrimSpace(s[len(lit):]); tail != "" {
			return bc.Const{}, fmt.Errorf("unexpected %q after string literal", tail)
		}
		str, err := strconv.Unquote(lit)
		if err != nil {
			return bc.Const{}, err
		}
		return bc.StringConst(str), nil
	case strings.HasPrefix(s, "type:"):
		desc := strings.TrimPrefix(s, "type:")
		if err := expectWord(desc, "class descriptor"); err != nil {
			return bc.Const{}, err
		}
		return bc.TypeConst(bc.Type(desc)), nil
	default:
		v, err := parseInt32(s)
		if err != nil {
			return bc.Const{}, err
		}
		return bc.IntConst(v), nil
	}
}

func parseMember(op bc.Opcode, s string) (owner, name, desc string, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", "", "", fmt.Errorf("expected owner.name and descriptor")
	}
	owner, name = splitMember(fields[0])
	if owner == "" || name == "" {
		return "", "", "", fmt.Errorf("malformed member %q", fields[0])
	}
	desc = fields[1]
	if op.IsInvoke() {
		if _, _, err := bc.ParseMethodDesc(desc); err != nil {
			return "", "", "", err
		}
	}
	return owner, name, desc, nil
}
