package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/linql/internal/ast"
)

// TypeExpr is a parsed type expression: Name<Args...> with an optional
// trailing "?".
type TypeExpr struct {
	Name     string
	Args     []*TypeExpr
	Nullable bool
}

// String renders the expression in source form.
func (te *TypeExpr) String() string {
	var b strings.Builder
	b.WriteString(te.Name)
	if len(te.Args) > 0 {
		b.WriteByte('<')
		for i, a := range te.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte('>')
	}
	if te.Nullable {
		b.WriteByte('?')
	}
	return b.String()
}

// TypeRef converts the expression to a wire descriptor. "T?" becomes
// Nullable<T>, which only resolves for value types.
func (te *TypeExpr) TypeRef() *ast.TypeRef {
	ref := &ast.TypeRef{TypeName: te.Name}
	for _, a := range te.Args {
		ref.GenericParameters = append(ref.GenericParameters, a.TypeRef())
	}
	if te.Nullable {
		return &ast.TypeRef{TypeName: "Nullable", GenericParameters: []*ast.TypeRef{ref}}
	}
	return ref
}

// maxTypeRefDepth bounds descriptor nesting during resolution.
const maxTypeRefDepth = 64

func fromTypeRef(ref *ast.TypeRef) *TypeExpr {
	return typeRefToExpr(ref, 0)
}

func typeRefToExpr(ref *ast.TypeRef, depth int) *TypeExpr {
	te := &TypeExpr{Name: ref.TypeName}
	if depth >= maxTypeRefDepth {
		// Unresolvable sentinel; a cyclic or absurdly deep descriptor
		// fails lookup instead of recursing forever.
		te.Name = "<too deep>"
		return te
	}
	for _, p := range ref.GenericParameters {
		if p == nil {
			te.Args = append(te.Args, &TypeExpr{Name: "<nil>"})
			continue
		}
		te.Args = append(te.Args, typeRefToExpr(p, depth+1))
	}
	return te
}

// ParseTypeExpr parses "Name", "Ns.Name", "Name<A, B>" and "Name?".
func ParseTypeExpr(s string) (*TypeExpr, error) {
	p := &typeParser{src: s}
	te, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}
	return te, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) parse() (*TypeExpr, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r == '.' || r == '`' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return nil, fmt.Errorf("expected type name at offset %d", start)
	}
	te := &TypeExpr{Name: p.src[start:p.pos]}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			te.Args = append(te.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("unterminated generic argument list in %q", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
		}
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '?' {
		p.pos++
		te.Nullable = true
	}
	return te, nil
}
