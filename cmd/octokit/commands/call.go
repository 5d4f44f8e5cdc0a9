package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CallOptions controls how a call is made and printed.
type CallOptions struct {
	Group     string
	Operation string
	Args      octokit.Args
	All       bool
	Path      string
	Output    string
}

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call GROUP OPERATION [KEY=VALUE...]",
		Short: "Call an API operation",
		Long: `Call any operation of the route set by resource group and operation name.

Values are decoded as JSON when possible, so numbers, booleans, arrays and
objects can be passed directly; anything else is sent as a string.`,
		Example: `  octokit call issues list_for_repo owner=octocat repo=hello-world state=open
  octokit call issues create owner=octocat repo=hello-world title="Found a bug" 'labels=["bug"]'
  octokit call repos get owner=octocat repo=hello-world --path '$.full_name'
  octokit call issues list_for_repo owner=octocat repo=hello-world --all`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := parseArgs(args[2:])
			if err != nil {
				return err
			}

			headerFlags, _ := cmd.Flags().GetStringArray("header")

			headers, err := parseHeaders(headerFlags)
			if err != nil {
				return err
			}

			if len(headers) > 0 {
				callArgs[constants.ArgHeaders] = headers
			}

			specFile, _ := cmd.Flags().GetString("spec-file")
			all, _ := cmd.Flags().GetBool("all")
			path, _ := cmd.Flags().GetString("path")

			client, err := CreateClient(cmd.Context(), specFile)
			if err != nil {
				return err
			}

			return RunCall(cmd.Context(), client, cmd.OutOrStdout(), &CallOptions{
				Group:     args[0],
				Operation: args[1],
				Args:      callArgs,
				All:       all,
				Path:      path,
				Output:    viper.GetString("output"),
			})
		},
	}

	cmd.Flags().StringArrayP("header", "H", nil, "request header as name:value (repeatable)")
	cmd.Flags().Bool("all", false, "follow pagination links and return every page")
	cmd.Flags().String("path", "", "JSONPath expression applied to the response body")
	cmd.Flags().String("spec-file", "", "route specification or OpenAPI 3 document to use instead of the embedded route sets")

	return cmd
}

// RunCall calls one operation and writes the response body to out. Error
// responses are still printed before the error is returned.
func RunCall(ctx context.Context, client octokit.Client, out io.Writer, opts *CallOptions) error {
	op, err := client.Operation(opts.Group, opts.Operation)
	if err != nil {
		return err
	}

	if opts.All {
		return runPaginated(ctx, op, out, opts)
	}

	result, callErr := op.Call(ctx, opts.Args)
	if result == nil {
		return callErr
	}

	if !result.IsJSON() {
		_, err = io.WriteString(out, result.Text())
		if err != nil {
			return err
		}

		return callErr
	}

	err = printValue(out, result.Data(), opts)
	if err != nil {
		return err
	}

	return callErr
}

func runPaginated(ctx context.Context, op octokit.Operation, out io.Writer, opts *CallOptions) error {
	var items []any

	page := 0
	if p, ok := opts.Args[constants.ArgPage]; ok {
		if n, ok := octokit.FromInterface(p).Int(); ok {
			page = int(n)
		}
	}

	args := make(octokit.Args, len(opts.Args))
	for k, v := range opts.Args {
		if k != constants.ArgPage {
			args[k] = v
		}
	}

	for body, err := range octokit.Paginate(ctx, octokit.Pages(op), page, args) {
		if err != nil {
			return err
		}

		if body.Kind() == octokit.KindList {
			for _, item := range body.List() {
				items = append(items, item)
			}
		} else {
			items = append(items, body)
		}
	}

	return printValue(out, octokit.FromInterface(items), opts)
}

func valuesToInterfaces(values []octokit.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}

	return out
}

func printValue(out io.Writer, v octokit.Value, opts *CallOptions) error {
	var data any = v

	if opts.Path != "" {
		found, err := v.Path(opts.Path)
		if err != nil {
			return err
		}

		switch len(found) {
		case 1:
			data = found[0]
		default:
			data = found
		}
	}

	switch opts.Output {
	case constants.FormatYAML:
		return yaml.NewEncoder(out).Encode(toInterface(data))
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(data)
	}
}

func toInterface(data any) any {
	switch d := data.(type) {
	case octokit.Value:
		return d.Interface()
	case []octokit.Value:
		return valuesToInterfaces(d)
	default:
		return d
	}
}

// parseArgs turns key=value pairs into call arguments. Values that decode as
// JSON keep their JSON type; numbers stay exact.
func parseArgs(pairs []string) (octokit.Args, error) {
	args := make(octokit.Args, len(pairs))

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidArgument, pair)
		}

		args[key] = parseArgValue(raw)
	}

	return args, nil
}

func parseArgValue(raw string) any {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()

	var value any

	err := decoder.Decode(&value)
	if err != nil || value == nil {
		return raw
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return raw
	}

	return value
}

// parseHeaders turns name:value flags into a header map.
func parseHeaders(flags []string) (map[string]string, error) {
	headers := make(map[string]string, len(flags))

	for _, flag := range flags {
		name, value, ok := strings.Cut(flag, ":")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidHeaderFlag, flag)
		}

		headers[name] = strings.TrimSpace(value)
	}

	return headers, nil
}
