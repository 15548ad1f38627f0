// Package catalog resolves wire type descriptors to concrete types.
//
// A Catalog searches an ordered list of namespaces: the built-in System
// namespace first, then user namespaces in registration order. The first
// namespace that defines a name wins; a qualified name ("Models.DataModel")
// selects a namespace explicitly.
//
// Runtime values use a fixed representation so the compiler and the
// operator tables need no reflection:
//
//	Boolean      bool
//	Int32        int32
//	Int64        int64
//	Double       float64
//	Decimal      decimal.Decimal
//	String       string
//	List<T>      []any
//	Nullable<T>  nil or a T value
//	object       *Record
//	IGrouping    *Grouping
//
// Generic instantiations are memoized process-wide, so two descriptors
// naming the same instantiation yield the identical *Type.
package catalog
