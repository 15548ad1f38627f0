// Package pipeline defines the queryable collaborator a compiled search
// runs against and the fixed table of pipeline functions.
//
// The Dispatcher maps wire function names (Where, Select, OrderBy, ...)
// to Operators. An Operator checks argument shapes and computes its
// result type at compile time, then applies itself to a Queryable at
// execution time. Names are matched exactly; unknown names fail with
// UnsupportedOperation.
package pipeline
