package ast

// Expression is a node of the Linql wire tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method prevents external implementations and lets the
// compiler use exhaustive type switches over the closed node set:
//   - Constant: typed literal
//   - Object: typed structured literal, optionally continued by Next
//   - Parameter: named variable reference, optionally continued by Next
//   - Property: member access on the preceding expression
//   - Binary: operator applied to Left and Right
//   - Unary: operator applied to Operand
//   - Lambda: parameter list and body
//   - Function: pipeline operator applied to the preceding expression
type Expression interface {
	linqlExpression() // Marker method - seals interface to this package
}

// Wire discriminators carried in the "$type" field.
const (
	KindConstant  = "LinqlConstant"
	KindObject    = "LinqlObject"
	KindParameter = "LinqlParameter"
	KindProperty  = "LinqlProperty"
	KindBinary    = "LinqlBinary"
	KindUnary     = "LinqlUnary"
	KindLambda    = "LinqlLambda"
	KindFunction  = "LinqlFunction"
)

// TypeRef is a structured type name with optional generic parameters.
//
// Example: List<Int32> is
//
//	&TypeRef{TypeName: "List", GenericParameters: []*TypeRef{{TypeName: "Int32"}}}
type TypeRef struct {
	TypeName          string     `json:"TypeName"`
	GenericParameters []*TypeRef `json:"GenericParameters,omitempty"`
}

// Constant is a literal of ConstantType. Value holds the raw wire value
// (bool, json.Number, string, nil, []any or map[string]any after decoding;
// any Go scalar when built programmatically).
type Constant struct {
	ConstantType *TypeRef `json:"ConstantType"`
	Value        any      `json:"Value"`
}

func (*Constant) linqlExpression() {}

// Object is a structured literal materialized into Type.
type Object struct {
	Type  *TypeRef   `json:"Type"`
	Value any        `json:"Value"`
	Next  Expression `json:"Next,omitempty"`
}

func (*Object) linqlExpression() {}

// Parameter names a lambda variable.
type Parameter struct {
	ParameterName string     `json:"ParameterName"`
	Next          Expression `json:"Next,omitempty"`
}

func (*Parameter) linqlExpression() {}

// Property accesses PropertyName on the preceding expression in a chain.
type Property struct {
	PropertyName string     `json:"PropertyName"`
	Next         Expression `json:"Next,omitempty"`
}

func (*Property) linqlExpression() {}

// Binary applies BinaryName (e.g. "Equal", "AndAlso") to Left and Right.
type Binary struct {
	BinaryName string     `json:"BinaryName"`
	Left       Expression `json:"Left"`
	Right      Expression `json:"Right"`
}

func (*Binary) linqlExpression() {}

// Unary applies UnaryName ("Not", "Negate") to Operand.
type Unary struct {
	UnaryName string     `json:"UnaryName"`
	Operand   Expression `json:"Operand"`
	Next      Expression `json:"Next,omitempty"`
}

func (*Unary) linqlExpression() {}

// Lambda is a callable with an ordered parameter list.
type Lambda struct {
	Parameters []*Parameter `json:"Parameters"`
	Body       Expression   `json:"Body"`
}

func (*Lambda) linqlExpression() {}

// Function applies a pipeline operator to the preceding expression.
type Function struct {
	FunctionName string       `json:"FunctionName"`
	Arguments    []Expression `json:"Arguments"`
	Next         Expression   `json:"Next,omitempty"`
}

func (*Function) linqlExpression() {}

// KindOf returns the wire discriminator of e, or "" for nil or unknown nodes.
func KindOf(e Expression) string {
	switch e.(type) {
	case *Constant:
		return KindConstant
	case *Object:
		return KindObject
	case *Parameter:
		return KindParameter
	case *Property:
		return KindProperty
	case *Binary:
		return KindBinary
	case *Unary:
		return KindUnary
	case *Lambda:
		return KindLambda
	case *Function:
		return KindFunction
	default:
		return ""
	}
}

// NextOf returns the continuation of e, or nil if e cannot be continued.
func NextOf(e Expression) Expression {
	switch n := e.(type) {
	case *Object:
		return n.Next
	case *Parameter:
		return n.Next
	case *Property:
		return n.Next
	case *Unary:
		return n.Next
	case *Function:
		return n.Next
	default:
		return nil
	}
}

// LastInChain follows Next links and returns the final node.
// Validate must have accepted e; a cyclic chain never terminates.
func LastInChain(e Expression) Expression {
	for {
		next := NextOf(e)
		if next == nil {
			return e
		}
		e = next
	}
}

// WithNext returns a shallow copy of e whose continuation is next.
// Returns false if e's kind carries no continuation.
func WithNext(e Expression, next Expression) (Expression, bool) {
	switch n := e.(type) {
	case *Object:
		cp := *n
		cp.Next = next
		return &cp, true
	case *Parameter:
		cp := *n
		cp.Next = next
		return &cp, true
	case *Property:
		cp := *n
		cp.Next = next
		return &cp, true
	case *Unary:
		cp := *n
		cp.Next = next
		return &cp, true
	case *Function:
		cp := *n
		cp.Next = next
		return &cp, true
	default:
		return nil, false
	}
}

// AppendToChain returns a copy of the chain starting at e with tail linked
// after its last node. The original chain is not modified.
func AppendToChain(e Expression, tail Expression) (Expression, bool) {
	next := NextOf(e)
	if next == nil {
		return WithNext(e, tail)
	}
	rest, ok := AppendToChain(next, tail)
	if !ok {
		return nil, false
	}
	return WithNext(e, rest)
}

// String renders a TypeRef as Name<Arg, ...>.
func (t *TypeRef) String() string {
	if t == nil {
		return "<nil>"
	}
	if len(t.GenericParameters) == 0 {
		return t.TypeName
	}
	s := t.TypeName + "<"
	for i, g := range t.GenericParameters {
		if i > 0 {
			s += ", "
		}
		s += g.String()
	}
	return s + ">"
}
