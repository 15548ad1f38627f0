// Package ast provides the Linql wire expression tree.
//
// This package contains the data contract only: node types, the JSON codec,
// structural validation and canonical fingerprints. It performs no type
// resolution and imports nothing internal except the error taxonomy, so it
// stays the foundational layer for the catalog and compiler.
//
// Key constraints:
//   - The node set is closed (sealed Expression interface)
//   - Next forms an acyclic continuation, resolved left to right
//   - Field names are the wire contract and match the client libraries exactly
//   - Trees are immutable once decoded; builders return copies
package ast
