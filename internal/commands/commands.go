// Package commands registers the Nimba SMS resources on a command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/pflag"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// Options holds the side effects handlers need besides the API.
type Options struct {
	// OpenURL opens a link in the browser. Defaults to open.Run.
	OpenURL func(url string) error
	// OpenFile opens a file for upload. Defaults to os.Open.
	OpenFile func(name string) (io.ReadCloser, error)
}

func (o Options) withDefaults() Options {
	if o.OpenURL == nil {
		o.OpenURL = open.Run
	}
	if o.OpenFile == nil {
		o.OpenFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }
	}
	return o
}

// NewTree builds the full nimbasms command tree.
func NewTree(opts Options) (*command.Tree, error) {
	tree := command.New(config.AppName, "Command line client for the Nimba SMS API")
	if err := Register(tree, opts); err != nil {
		return nil, err
	}
	return tree, nil
}

// Register adds every resource command to tree.
func Register(tree *command.Tree, opts Options) error {
	opts = opts.withDefaults()
	r := &registrar{tree: tree}

	registerAccount(r)
	registerExtensions(r, opts)
	registerActions(r)
	registerPlans(r)
	registerMessages(r)
	registerContacts(r)
	registerVerifications(r)

	if r.err != nil {
		return r.err
	}
	tree.Walk(func(path string, cmd *command.Command) {
		if r.err == nil && cmd.Short == "" {
			r.err = fmt.Errorf("command %q has no description", path)
		}
	})
	return r.err
}

// registrar keeps the first registration error so the register functions
// read as flat tables.
type registrar struct {
	tree *command.Tree
	err  error
}

func (r *registrar) group(path, short string) {
	if r.err != nil {
		return
	}
	if err := r.tree.Describe(strings.Fields(path), short); err != nil {
		r.err = fmt.Errorf("describe %q: %w", path, err)
	}
}

func (r *registrar) add(path string, cmd *command.Command) {
	if r.err != nil {
		return
	}
	if err := r.tree.Register(strings.Fields(path), cmd); err != nil {
		r.err = err
	}
}

// paramsFunc extracts the path parameters of a nested resource.
type paramsFunc func(inv *command.Invocation) api.Params

func noParams(*command.Invocation) api.Params { return nil }

func extensionParams(inv *command.Invocation) api.Params {
	return nimba.ExtensionParams(inv.Param(nimba.ParamExtensionID))
}

const (
	flagLimit  = "limit"
	flagOffset = "offset"
	flagAll    = "all"
	flagFilter = "filter"
)

// DefaultLimit is the page size of list commands.
const DefaultLimit = 10

// listSpec describes a list command.
type listSpec struct {
	Res     api.Resource
	Short   string
	Example string
	Columns []output.Column
	Params  paramsFunc
	// Fields become query parameters of the first page.
	Fields []field
}

func listCommand[T any](spec listSpec) *command.Command {
	params := spec.Params
	if params == nil {
		params = noParams
	}
	return &command.Command{
		Short:   spec.Short,
		Example: spec.Example,
		Flags: func(fs *pflag.FlagSet) {
			fs.Int(flagLimit, DefaultLimit, "Maximum number of items to show (page size with --all)")
			fs.Int(flagOffset, 0, "Number of items to skip")
			fs.Bool(flagAll, false, "Follow pagination and show every item")
			fs.String(flagFilter, "", `Only show items matching an expression, e.g. 'status == "sent"'; --limit counts matches`)
			addFieldFlags(fs, spec.Fields)
		},
		Validate: func(inv *command.Invocation) error {
			if inv.Int(flagLimit) < 1 {
				return command.Invalid("--"+flagLimit, "must be at least 1")
			}
			if inv.Int(flagOffset) < 0 {
				return command.Invalid("--"+flagOffset, "must not be negative")
			}
			if inv.Changed(flagFilter) {
				if _, err := output.CompileFilter(inv.String(flagFilter)); err != nil {
					return command.Invalid("--"+flagFilter, "%v", err)
				}
			}
			return checkFields(inv, spec.Fields)
		},
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			var filter *output.Filter
			if inv.Changed(flagFilter) {
				var err error
				if filter, err = output.CompileFilter(inv.String(flagFilter)); err != nil {
					return nil, err
				}
			}

			limit := inv.Int(flagLimit)
			if inv.Bool(flagAll) {
				limit = 0
			}
			filters := api.Filters{
				PageSize: inv.Int(flagLimit),
				Offset:   inv.Int(flagOffset),
				MaxItems: limit,
			}
			// With a filter the limit counts matches, so the pager runs unbounded.
			if filter != nil {
				filters.MaxItems = 0
			}
			for _, f := range spec.Fields {
				if inv.Changed(f.Flag) {
					if filters.Query == nil {
						filters.Query = make(map[string][]string)
					}
					filters.Query.Set(f.key(), inv.Flags.Lookup(f.Flag).Value.String())
				}
			}

			pager := api.List[T](inv.Client, spec.Res, params(inv), filters)
			result := output.List(spec.Res.Name, nil, spec.Columns...)
			for (limit == 0 || len(result.Items) < limit) && pager.Next(ctx) {
				raw := pager.Item().Raw
				if filter != nil {
					ok, err := filter.Match(raw)
					if err != nil {
						return nil, failf("%w", err)
					}
					if !ok {
						continue
					}
				}
				result.Items = append(result.Items, raw)
			}
			if err := pager.Err(); err != nil {
				return nil, err
			}
			return result, nil
		},
	}
}

// idArg is the positional id of the resource a leaf acts on.
func idArg(name, help string) []command.Arg {
	return []command.Arg{{Name: name, Help: help, ID: true}}
}

func getCommand[T any](res api.Resource, short, arg string, params paramsFunc, columns []output.Column) *command.Command {
	return &command.Command{
		Short: short,
		Args:  idArg(arg, "Identifier of the "+singular(res.Name)),
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			item, err := api.Get[T](ctx, inv.Client, res, params(inv), inv.Arg(arg))
			if err != nil {
				return nil, err
			}
			return output.Object(singular(res.Name), item.Raw, columns...), nil
		},
	}
}

// createCommand posts the body built from fields. Flags in required must be set.
func createCommand[T any](res api.Resource, short, example string, params paramsFunc, fields []field, required []string, columns []output.Column) *command.Command {
	return &command.Command{
		Short:    short,
		Example:  example,
		Flags:    flagsFor(fields),
		Required: required,
		Validate: func(inv *command.Invocation) error { return checkFields(inv, fields) },
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			body, err := bodyFromFlags(inv, fields)
			if err != nil {
				return nil, err
			}
			item, err := api.Create[T](ctx, inv.Client, res, params(inv), body)
			if err != nil {
				return nil, err
			}
			return output.Object(singular(res.Name), item.Raw, columns...), nil
		},
	}
}

// updateCommand sends a partial PATCH with the fields that were set.
func updateCommand[T any](res api.Resource, short, arg string, params paramsFunc, fields []field, columns []output.Column) *command.Command {
	return &command.Command{
		Short: short,
		Args:  idArg(arg, "Identifier of the "+singular(res.Name)),
		Flags: flagsFor(fields),
		Validate: func(inv *command.Invocation) error {
			if !anyChanged(inv, fields) {
				return command.Invalid("", "no fields to update; set at least one flag")
			}
			return checkFields(inv, fields)
		},
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			body, err := bodyFromFlags(inv, fields)
			if err != nil {
				return nil, err
			}
			item, err := api.Update[T](ctx, inv.Client, res, params(inv), inv.Arg(arg), body)
			if err != nil {
				return nil, err
			}
			return output.Object(singular(res.Name), item.Raw, columns...), nil
		},
	}
}

func deleteCommand(res api.Resource, short, arg string, params paramsFunc) *command.Command {
	return &command.Command{
		Short: short,
		Args:  idArg(arg, "Identifier of the "+singular(res.Name)),
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			id := inv.Arg(arg)
			if err := api.Delete(ctx, inv.Client, res, params(inv), id); err != nil {
				return nil, err
			}
			return output.Message(fmt.Sprintf("Deleted %s %s.", singular(res.Name), id)), nil
		},
	}
}

func publishCommand(res api.Resource, short, arg string, params paramsFunc) *command.Command {
	return &command.Command{
		Short: short,
		Args:  idArg(arg, "Identifier of the "+singular(res.Name)),
		Run: func(ctx context.Context, inv *command.Invocation) (*output.Result, error) {
			status, err := api.Action[nimba.PublishStatus](ctx, inv.Client, res, params(inv), inv.Arg(arg), "publish", http.MethodPost, nil)
			if err != nil {
				return nil, err
			}
			return output.Object("publish status", status.Raw, publishColumns...), nil
		},
	}
}

var publishColumns = []output.Column{output.Col("PUBLISHED", "is_published"), output.Col("STATUS", "status")}

// singular turns a collection name into the noun used in messages.
func singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "s"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}

// failure is a handler error caused by data rather than a bug. It exits 1.
type failure struct {
	err error
}

func failf(format string, args ...any) error {
	return &failure{err: fmt.Errorf(format, args...)}
}

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }
func (f *failure) ExitCode() int { return output.ExitFailure }
