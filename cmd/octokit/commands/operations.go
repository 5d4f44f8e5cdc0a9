package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/fivetwenty-io/octokit/pkg/routes"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OperationSummary is the listing form of one operation.
type OperationSummary struct {
	Group      string `json:"group"                yaml:"group"`
	ID         string `json:"id"                   yaml:"id"`
	Key        string `json:"key"                  yaml:"key"`
	Method     string `json:"method"               yaml:"method"`
	URL        string `json:"url"                  yaml:"url"`
	Deprecated bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// NewOperationsCommand creates the operations command group.
func NewOperationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operations",
		Aliases: []string{"ops"},
		Short:   "Browse the operations of a route set",
		Long:    "List and describe the resource groups and operations generated from the selected route set",
	}

	cmd.PersistentFlags().String("spec-file", "", "route specification or OpenAPI 3 document to use instead of the embedded route sets")

	cmd.AddCommand(newOperationsListCommand())
	cmd.AddCommand(newOperationsDescribeCommand())
	cmd.AddCommand(newOperationsRouteSetsCommand())

	return cmd
}

func newOperationsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [GROUP]",
		Short: "List operations",
		Long:  "List every operation, or only the operations of one resource group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specFile, _ := cmd.Flags().GetString("spec-file")

			spec, err := resolveSpecification(specFile)
			if err != nil {
				return err
			}

			groups := spec.Groups()
			if len(args) == 1 {
				if _, ok := spec[args[0]]; !ok {
					return fmt.Errorf("%w: %s", octokit.ErrUnknownGroup, args[0])
				}

				groups = []string{args[0]}
			}

			return renderOperations(cmd.OutOrStdout(), summarize(spec, groups), viper.GetString("output"))
		},
	}
}

func newOperationsDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe GROUP OPERATION",
		Short: "Describe an operation",
		Long:  "Show the method, URL, documentation and parameters of an operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			specFile, _ := cmd.Flags().GetString("spec-file")

			spec, err := resolveSpecification(specFile)
			if err != nil {
				return err
			}

			op, ok := spec.Find(args[0], args[1])
			if !ok {
				return fmt.Errorf("%w: %s/%s", octokit.ErrUnknownOperation, args[0], args[1])
			}

			return renderOperation(cmd.OutOrStdout(), op, viper.GetString("output"))
		},
	}
}

func newOperationsRouteSetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "route-sets",
		Short: "List the embedded route sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := routes.DefaultCatalog()
			if err != nil {
				return err
			}

			for _, id := range catalog.IDs() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}

			return nil
		},
	}
}

// resolveSpecification loads specFile when set, otherwise the configured
// embedded route set.
func resolveSpecification(specFile string) (routes.Specification, error) {
	if specFile != "" {
		return loadSpecification(specFile)
	}

	catalog, err := routes.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	id := viper.GetString("routes")
	if id == "" {
		id = constants.DefaultRouteSet
	}

	return catalog.Lookup(id)
}

func summarize(spec routes.Specification, groups []string) []OperationSummary {
	var out []OperationSummary

	for _, group := range groups {
		for _, op := range spec[group] {
			keys := op.Keys()

			out = append(out, OperationSummary{
				Group:      group,
				ID:         op.ID,
				Key:        keys[len(keys)-1],
				Method:     strings.ToUpper(op.Method),
				URL:        op.URL,
				Deprecated: op.Deprecated,
			})
		}
	}

	return out
}

func renderOperations(w io.Writer, ops []OperationSummary, output string) error {
	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(ops)
	case constants.FormatYAML:
		return yaml.NewEncoder(w).Encode(ops)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Group", "Operation", "Method", "URL")

	for _, op := range ops {
		name := op.ID
		if op.Deprecated {
			name += " (deprecated)"
		}

		_ = table.Append(op.Group, name, op.Method, op.URL)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderOperation(w io.Writer, op *routes.Operation, output string) error {
	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(op)
	case constants.FormatYAML:
		return yaml.NewEncoder(w).Encode(op)
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", strings.ToUpper(op.Method), op.URL)
	_, _ = fmt.Fprintf(w, "Names: %s\n", strings.Join(op.Keys(), ", "))

	if doc := op.Doc(); doc != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", doc)
	}

	params := op.ParameterMap()
	if len(params) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Name", "In", "Type", "Required", "Allowed", "Default")

	for _, name := range slices.Sorted(maps.Keys(params)) {
		p := params[name]

		_ = table.Append(
			p.Name,
			p.In,
			formatConfigValue(p.SchemaType()),
			strconv.FormatBool(p.Required),
			formatList(p.EnumValues()),
			formatAny(p.DefaultValue()),
		)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatList(values []any) string {
	if len(values) == 0 {
		return ""
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}

	return strings.Join(parts, ", ")
}

func formatAny(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprint(v)
}
