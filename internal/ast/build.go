package ast

// Helpers for building trees in Go, mainly for tests and tools. They produce
// the same shapes a conforming client emits.

// Type builds a TypeRef.
func Type(name string, generics ...*TypeRef) *TypeRef {
	return &TypeRef{TypeName: name, GenericParameters: generics}
}

// Const builds a Constant of the named non-generic type.
func Const(typeName string, value any) *Constant {
	return &Constant{ConstantType: Type(typeName), Value: value}
}

// Obj builds an Object literal.
func Obj(t *TypeRef, value any) *Object {
	return &Object{Type: t, Value: value}
}

// Param builds a Parameter reference.
func Param(name string) *Parameter {
	return &Parameter{ParameterName: name}
}

// Prop builds a Property access.
func Prop(name string) *Property {
	return &Property{PropertyName: name}
}

// Bin builds a Binary node.
func Bin(name string, left, right Expression) *Binary {
	return &Binary{BinaryName: name, Left: left, Right: right}
}

// Not builds a logical negation.
func Not(operand Expression) *Unary {
	return &Unary{UnaryName: "Not", Operand: operand}
}

// Fn builds a Function node.
func Fn(name string, args ...Expression) *Function {
	return &Function{FunctionName: name, Arguments: args}
}

// Lam builds a single-parameter lambda.
func Lam(param string, body Expression) *Lambda {
	return &Lambda{Parameters: []*Parameter{Param(param)}, Body: body}
}

// Chain links nodes through Next, left to right, and returns the head.
// Nodes that cannot carry a continuation end the chain early; Chain panics
// in that case since it indicates a malformed test tree.
func Chain(head Expression, rest ...Expression) Expression {
	if len(rest) == 0 {
		return head
	}
	tail := Chain(rest[0], rest[1:]...)
	linked, ok := WithNext(head, tail)
	if !ok {
		panic("ast.Chain: " + KindOf(head) + " cannot be continued")
	}
	return linked
}

// Path builds a member chain rooted at a parameter: Path("r", "a", "b") is r.a.b.
func Path(param string, members ...string) Expression {
	nodes := make([]Expression, 0, len(members))
	for _, m := range members {
		nodes = append(nodes, Prop(m))
	}
	return Chain(Param(param), nodes...)
}
