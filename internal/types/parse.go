package types

import (
	"fmt"
	"strings"
)

// Scope resolves type parameter names visible to a type expression.
type Scope map[string]TypeID

var shortNames = map[string]string{
	"Any":               ClassAny,
	"String":            ClassString,
	"Int":               ClassInt,
	"Boolean":           ClassBoolean,
	"Long":              "kotlin/Long",
	"Short":             "kotlin/Short",
	"Byte":              "kotlin/Byte",
	"Char":              "kotlin/Char",
	"Float":             "kotlin/Float",
	"Double":            "kotlin/Double",
	"Number":            "kotlin/Number",
	"Unit":              "kotlin/Unit",
	"Nothing":           "kotlin/Nothing",
	"IntArray":          "kotlin/IntArray",
	"LongArray":         "kotlin/LongArray",
	"BooleanArray":      "kotlin/BooleanArray",
	"Iterable":          "kotlin/collections/Iterable",
	"Collection":        "kotlin/collections/Collection",
	"List":              "kotlin/collections/List",
	"Set":               "kotlin/collections/Set",
	"Map":               "kotlin/collections/Map",
	"MutableIterable":   "kotlin/collections/MutableIterable",
	"MutableCollection": "kotlin/collections/MutableCollection",
	"MutableList":       "kotlin/collections/MutableList",
	"MutableSet":        "kotlin/collections/MutableSet",
	"MutableMap":        "kotlin/collections/MutableMap",
}

// Parse reads a type expression such as "Array<T>?", "List<*>" or
// "com/example/Box<kotlin/String?>". Names found in scope resolve to type
// parameters; "Array" is the generic array; a few kotlin builtins may be
// written without their package.
func Parse(in *Interner, expr string, scope Scope) (TypeID, error) {
	p := &typeParser{in: in, src: expr, scope: scope}
	p.skipSpace()
	id, err := p.parseType()
	if err != nil {
		return NoTypeID, fmt.Errorf("types: parse %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return NoTypeID, fmt.Errorf("types: parse %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return id, nil
}

type typeParser struct {
	in    *Interner
	src   string
	pos   int
	scope Scope
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) accept(c byte) bool {
	p.skipSpace()
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func isNameByte(c byte) bool {
	return c == '_' || c == '/' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *typeParser) parseName() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		if p.pos >= len(p.src) {
			return "", fmt.Errorf("expected type name, got end of input")
		}
		return "", fmt.Errorf("expected type name at offset %d", p.pos)
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseType() (TypeID, error) {
	name, err := p.parseName()
	if err != nil {
		return NoTypeID, err
	}
	var args []TypeID
	if p.accept('<') {
		for {
			arg, err := p.parseArgument()
			if err != nil {
				return NoTypeID, err
			}
			args = append(args, arg)
			if p.accept(',') {
				continue
			}
			if p.accept('>') {
				break
			}
			return NoTypeID, fmt.Errorf("expected ',' or '>' at offset %d", p.pos)
		}
	}

	var id TypeID
	switch {
	case name == "Array" || name == ClassArray:
		if len(args) != 1 {
			return NoTypeID, fmt.Errorf("array type takes exactly one argument, got %d", len(args))
		}
		id = p.in.Array(args[0])
	case p.scope != nil && p.scope[name] != NoTypeID:
		if len(args) != 0 {
			return NoTypeID, fmt.Errorf("type parameter %s cannot take arguments", name)
		}
		id = p.scope[name]
	default:
		if full, ok := shortNames[name]; ok {
			name = full
		}
		if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
			return NoTypeID, fmt.Errorf("malformed class name %q", name)
		}
		id = p.in.Class(name, args...)
	}
	if p.accept('?') {
		id = p.in.MakeNullable(id)
	}
	return id, nil
}

func (p *typeParser) parseArgument() (TypeID, error) {
	if p.accept('*') {
		return p.in.Builtins().Star, nil
	}
	return p.parseType()
}
