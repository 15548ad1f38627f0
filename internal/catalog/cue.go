package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// SchemaError reports an invalid namespace definition with its CUE
// source position when available.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE loads namespaces from a .cue file or from every .cue file in a
// directory, in lexical path order. Each file defines one namespace and
// may reference types from deps and from files loaded before it.
func LoadCUE(path string, deps ...*Namespace) ([]*Namespace, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = findCUEFiles(path)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no CUE files found in %s", path)
		}
	}

	known := append([]*Namespace(nil), deps...)
	var loaded []*Namespace
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		ns, err := ParseCUE(src, f, known...)
		if err != nil {
			return nil, err
		}
		known = append(known, ns)
		loaded = append(loaded, ns)
	}
	return loaded, nil
}

// Load builds a catalog from CUE files or directories. Each path may
// reference types from the paths before it; namespaces are searched in
// path order.
func Load(paths []string, opts ...Option) (*Catalog, error) {
	var namespaces []*Namespace
	for _, p := range paths {
		loaded, err := LoadCUE(p, namespaces...)
		if err != nil {
			return nil, err
		}
		namespaces = append(namespaces, loaded...)
	}
	return New(namespaces, opts...), nil
}

// ParseCUE compiles one namespace definition:
//
//	namespace: "Models"
//	types: DataModel: {
//		Integer:     "Int32"
//		ListInteger: "List<Int32>"
//		OneToOne:    "DataModel"
//	}
func ParseCUE(src []byte, filename string, deps ...*Namespace) (*Namespace, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileNamespace(v, deps...)
}

// CompileNamespace builds a namespace from a CUE value. Types are declared
// before any field is resolved, so fields may reference types defined
// later in the same namespace, including the enclosing type.
func CompileNamespace(v cue.Value, deps ...*Namespace) (*Namespace, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("namespace"))
	if !nameVal.Exists() {
		return nil, &SchemaError{Field: "namespace", Message: "namespace is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	ns := NewNamespace(name)

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return ns, nil
	}

	type pending struct {
		typ *Type
		val cue.Value
	}
	var decls []pending

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t := NewObject(iter.Label())
		if err := ns.Define(t); err != nil {
			return nil, &SchemaError{Field: "types." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
		decls = append(decls, pending{typ: t, val: iter.Value()})
	}

	// Local names shadow dependencies.
	resolver := New(append([]*Namespace{ns}, deps...))

	for _, d := range decls {
		fields, err := d.val.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fields.Next() {
			path := "types." + d.typ.Name() + "." + fields.Label()
			expr, err := fields.Value().String()
			if err != nil {
				return nil, &SchemaError{Field: path, Message: "field type must be a string", Pos: fields.Value().Pos()}
			}
			ft, err := resolver.ResolveName(expr)
			if err != nil {
				return nil, &SchemaError{Field: path, Message: err.Error(), Pos: fields.Value().Pos()}
			}
			if err := d.typ.AddField(fields.Label(), ft); err != nil {
				return nil, &SchemaError{Field: path, Message: err.Error(), Pos: fields.Value().Pos()}
			}
		}
	}
	return ns, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
