package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/catalog"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	System bool // include the System namespace
}

// TypeInfo describes one catalog definition.
type TypeInfo struct {
	Name   string      `json:"name"`
	Arity  int         `json:"arity,omitempty"`
	Fields []FieldInfo `json:"fields,omitempty"`
}

// FieldInfo is an object field and its type name.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NamespaceInfo lists a namespace's definitions in registration order.
type NamespaceInfo struct {
	Name  string     `json:"name"`
	Types []TypeInfo `json:"types"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List catalog types",
		Long: `List the namespaces and types a search can name.

Namespaces are shown in resolution order: when two namespaces define the
same simple name, the first one listed wins.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.System, "system", false, "include the System namespace")

	return cmd
}

func runTypes(opts *TypesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := opts.openEnv(cmd, false)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	var result []NamespaceInfo
	for _, ns := range e.catalog.Namespaces() {
		if ns.Name() == catalog.SystemNamespace && !opts.System {
			continue
		}
		result = append(result, describeNamespace(ns))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, ns := range result {
		fmt.Fprintf(w, "%s:\n", ns.Name)
		for _, t := range ns.Types {
			switch {
			case t.Arity > 0:
				fmt.Fprintf(w, "  %s`%d\n", t.Name, t.Arity)
			case len(t.Fields) == 0:
				fmt.Fprintf(w, "  %s\n", t.Name)
			default:
				fmt.Fprintf(w, "  %s {\n", t.Name)
				for _, f := range t.Fields {
					fmt.Fprintf(w, "    %s: %s\n", f.Name, f.Type)
				}
				fmt.Fprintln(w, "  }")
			}
		}
	}
	return nil
}

func describeNamespace(ns *catalog.Namespace) NamespaceInfo {
	info := NamespaceInfo{Name: ns.Name(), Types: []TypeInfo{}}
	for _, name := range ns.Names() {
		def, _ := ns.Lookup(name)
		t := TypeInfo{Name: name, Arity: def.Arity()}
		if typ := def.Type(); typ != nil {
			for _, f := range typ.Fields() {
				t.Fields = append(t.Fields, FieldInfo{Name: f.Name, Type: f.Type.String()})
			}
		}
		info.Types = append(info.Types, t)
	}
	return info
}
