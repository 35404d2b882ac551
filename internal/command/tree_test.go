package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// calls records which handlers ran.
type calls struct {
	ran []*Invocation
}

func (c *calls) handler(ctx context.Context, inv *Invocation) (*output.Result, error) {
	c.ran = append(c.ran, inv)
	return output.Message("ok"), nil
}

func mustRegister(t *testing.T, tree *Tree, path []string, cmd *Command) {
	t.Helper()
	require.NoError(t, tree.Register(path, cmd))
}

func newTestTree(t *testing.T) (*Tree, *calls) {
	t.Helper()
	c := &calls{}
	tree := New("nimbasms", "Nimba SMS command line")
	require.NoError(t, tree.Describe([]string{"extensions"}, "Manage extensions"))

	mustRegister(t, tree, []string{"extensions", "list"}, &Command{Short: "List extensions", Run: c.handler})
	mustRegister(t, tree, []string{"extensions", "get"}, &Command{
		Short: "Show an extension",
		Args:  []Arg{{Name: "id", Help: "Extension id", ID: true}},
		Run:   c.handler,
	})
	mustRegister(t, tree, []string{"extensions", "create"}, &Command{
		Short: "Create an extension",
		Flags: func(fs *pflag.FlagSet) {
			fs.String("name", "", "Extension name")
			fs.Bool("paid", false, "Paid extension")
		},
		Required: []string{"name"},
		Run:      c.handler,
	})
	mustRegister(t, tree, []string{"extensions", "{extension_id}", "actions", "list"}, &Command{Short: "List actions", Run: c.handler})
	mustRegister(t, tree, []string{"extensions", "{extension_id}", "actions", "get"}, &Command{
		Short: "Show an action",
		Args:  []Arg{{Name: "action_id", ID: true}},
		Run:   c.handler,
	})
	mustRegister(t, tree, []string{"verifications", "create"}, &Command{
		Short: "Start a verification",
		Flags: func(fs *pflag.FlagSet) { fs.Int("attempts", 3, "Attempts") },
		Validate: func(inv *Invocation) error {
			if n := inv.Int("attempts"); n < 3 || n > 10 {
				return Invalid("--attempts", "must be between 3 and 10, got %d", n)
			}
			return nil
		},
		Run: c.handler,
	})
	return tree, c
}

func asCommandError(t *testing.T, err error) *Error {
	t.Helper()
	var ce *Error
	require.True(t, errors.As(err, &ce), "expected *command.Error, got %T: %v", err, err)
	return ce
}

func TestRegisterErrors(t *testing.T) {
	noop := func(context.Context, *Invocation) (*output.Result, error) { return nil, nil }

	tests := []struct {
		name string
		path []string
		cmd  *Command
	}{
		{"empty path", nil, &Command{Run: noop}},
		{"no handler", []string{"x"}, &Command{}},
		{"param last", []string{"x", "{id}"}, &Command{Run: noop}},
		{"duplicate", []string{"extensions", "list"}, &Command{Run: noop}},
		{"under a leaf", []string{"extensions", "list", "more"}, &Command{Run: noop}},
		{"flag-like name", []string{"extensions", "--all"}, &Command{Run: noop}},
		{"conflicting params", []string{"extensions", "{id}", "plans", "list"}, &Command{Run: noop}},
		{"undefined required flag", []string{"extensions", "purge"}, &Command{Run: noop, Required: []string{"force"}}},
		{"duplicate flag", []string{"extensions", "touch"}, &Command{Run: noop, Flags: func(fs *pflag.FlagSet) {
			fs.String("a", "", "")
			fs.String("a", "", "")
		}}},
		{"shadows global flag", []string{"extensions", "shadow"}, &Command{Run: noop, Flags: func(fs *pflag.FlagSet) {
			fs.String(config.FlagFormat, "", "")
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _ := newTestTree(t)
			assert.Error(t, tree.Register(tt.path, tt.cmd))
		})
	}
}

func TestResolveLeaf(t *testing.T) {
	tree, _ := newTestTree(t)

	inv, err := tree.Resolve([]string{"extensions", "get", "ext_1"})
	require.NoError(t, err)
	assert.Equal(t, "nimbasms extensions get", inv.CommandPath)
	assert.Equal(t, "ext_1", inv.Arg("id"))
	assert.Empty(t, inv.Params)
}

func TestResolveCapturesParentID(t *testing.T) {
	tree, _ := newTestTree(t)

	inv, err := tree.Resolve([]string{"extensions", "ext_1", "actions", "get", "act_9"})
	require.NoError(t, err)
	assert.Equal(t, "nimbasms extensions <extension_id> actions get", inv.CommandPath)
	assert.Equal(t, "ext_1", inv.Param("extension_id"))
	assert.Equal(t, "act_9", inv.Arg("action_id"))
}

func TestResolveCaptureWithGlobalFlagBetween(t *testing.T) {
	tree, _ := newTestTree(t)

	inv, err := tree.Resolve([]string{"extensions", "ext_1", "--format", "json", "actions", "list"})
	require.NoError(t, err)
	assert.Equal(t, "ext_1", inv.Param("extension_id"))
	format, _ := inv.Flags.GetString(config.FlagFormat)
	assert.Equal(t, "json", format)
}

func TestResolveGlobalFlagsBeforePath(t *testing.T) {
	tree, _ := newTestTree(t)

	inv, err := tree.Resolve([]string{"--verbose", "--api-url=https://example.test", "extensions", "create", "--name", "Foo"})
	require.NoError(t, err)
	assert.True(t, inv.Changed(config.FlagVerbose))
	url, _ := inv.Flags.GetString(config.FlagAPIURL)
	assert.Equal(t, "https://example.test", url)
	assert.Equal(t, "Foo", inv.String("name"))
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		kind     ErrorKind
		errName  string
		contains string
	}{
		{"empty argv", nil, IncompleteCommand, "", "extensions"},
		{"group only", []string{"extensions"}, IncompleteCommand, "", "create"},
		{"capture group only", []string{"extensions", "ext_1", "actions"}, IncompleteCommand, "", "list"},
		{"unknown top level", []string{"bogus"}, UnknownCommand, "bogus", "bogus"},
		{"unknown verb", []string{"extensions", "frobnicate"}, UnknownCommand, "frobnicate", "frobnicate"},
		{"prefix is not a match", []string{"ext", "list"}, UnknownCommand, "ext", "ext"},
		{"unknown flag at group", []string{"extensions", "--bogus"}, InvalidArgument, "--bogus", "unknown flag"},
		{"missing required flag", []string{"extensions", "create"}, InvalidArgument, "--name", "required"},
		{"empty required flag", []string{"extensions", "create", "--name", " "}, InvalidArgument, "--name", "empty"},
		{"unknown leaf flag", []string{"extensions", "create", "--name", "x", "--nope"}, InvalidArgument, "--nope", "nope"},
		{"bad flag value", []string{"verifications", "create", "--attempts", "many"}, InvalidArgument, "--attempts", "many"},
		{"missing positional", []string{"extensions", "get"}, InvalidArgument, "<id>", "missing"},
		{"extra positional", []string{"extensions", "get", "a", "b"}, InvalidArgument, `"b"`, "unexpected"},
		{"malformed id", []string{"extensions", "get", "bad/id"}, InvalidArgument, "<id>", "malformed"},
		{"malformed parent id", []string{"extensions", "bad/id", "actions", "list"}, InvalidArgument, "<extension_id>", "malformed"},
		{"validate hook", []string{"verifications", "create", "--attempts", "11"}, InvalidArgument, "--attempts", "between 3 and 10"},
		{"bad global format", []string{"--format", "xml", "extensions", "list"}, InvalidArgument, "--format", "unknown format"},
		{"bad global timeout", []string{"extensions", "list", "--timeout", "abc"}, InvalidArgument, "--timeout", "abc"},
		{"bad global api url", []string{"extensions", "ext_1", "actions", "list", "--api-url", "ftp://x"}, InvalidArgument, "--api-url", "http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _ := newTestTree(t)
			_, err := tree.Resolve(tt.argv)
			ce := asCommandError(t, err)
			assert.Equal(t, tt.kind, ce.Kind)
			if tt.errName != "" {
				assert.Equal(t, tt.errName, ce.Name)
			}
			assert.Contains(t, ce.Error(), tt.contains)
			assert.NotEmpty(t, ce.Path)
		})
	}
}

func TestHelpAtEveryDepth(t *testing.T) {
	tree, _ := newTestTree(t)

	tests := []struct {
		argv     []string
		contains []string
	}{
		{[]string{"--help"}, []string{"Nimba SMS command line", "extensions", "verifications"}},
		{[]string{"extensions", "-h"}, []string{"Manage extensions", "create", "<extension_id> actions"}},
		{[]string{"extensions", "ext_1", "actions", "--help"}, []string{"list", "get"}},
		{[]string{"extensions", "create", "--help"}, []string{"--name", "Global Flags:", "--format"}},
		{[]string{"extensions", "get", "-h"}, []string{"nimbasms extensions get <id> [flags]", "Extension id"}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			inv, err := tree.Resolve(tt.argv)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, inv.Help, want)
			}
		})
	}
}

func TestHelpSkipsRequiredChecks(t *testing.T) {
	tree, c := newTestTree(t)

	res, err := tree.Dispatch(context.Background(), []string{"extensions", "create", "--help"}, Session{})
	require.NoError(t, err)
	assert.Equal(t, output.KindText, res.Kind)
	assert.Contains(t, res.Text, "--name")
	assert.Empty(t, c.ran)
}

func TestTreeHelp(t *testing.T) {
	tree, _ := newTestTree(t)

	text, err := tree.Help([]string{"extensions", "any_id", "actions"})
	require.NoError(t, err)
	assert.Contains(t, text, "nimbasms extensions <extension_id> actions")
}

func TestDispatchRunsHandler(t *testing.T) {
	tree, c := newTestTree(t)

	var sawFlags *pflag.FlagSet
	session := Session{
		Config: func(flags *pflag.FlagSet) (*config.ResolvedConfig, error) {
			sawFlags = flags
			return &config.ResolvedConfig{APIKey: "k", Format: config.FormatTable}, nil
		},
	}

	res, err := tree.Dispatch(context.Background(), []string{"extensions", "ext_1", "actions", "list"}, session)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	require.Len(t, c.ran, 1)
	assert.Equal(t, "ext_1", c.ran[0].Param("extension_id"))
	assert.NotNil(t, c.ran[0].Config)
	assert.Same(t, c.ran[0].Flags, sawFlags)
}

func TestDispatchConfigErrorStopsBeforeHandler(t *testing.T) {
	tree, c := newTestTree(t)

	cfgErr := &config.Error{Kind: config.MissingCredential, Key: config.KeyAPIKey}
	session := Session{
		Config: func(*pflag.FlagSet) (*config.ResolvedConfig, error) { return nil, cfgErr },
	}

	_, err := tree.Dispatch(context.Background(), []string{"extensions", "list"}, session)
	assert.ErrorIs(t, err, cfgErr)
	assert.Empty(t, c.ran)
}

func TestDispatchValidationBeforeConfig(t *testing.T) {
	tree, _ := newTestTree(t)

	configCalled := false
	session := Session{
		Config: func(*pflag.FlagSet) (*config.ResolvedConfig, error) {
			configCalled = true
			return &config.ResolvedConfig{}, nil
		},
	}

	_, err := tree.Dispatch(context.Background(), []string{"extensions", "create"}, session)
	assert.Equal(t, InvalidArgument, asCommandError(t, err).Kind)
	assert.False(t, configCalled)
}

func TestDispatchRecoversPanics(t *testing.T) {
	tree, _ := newTestTree(t)
	mustRegister(t, tree, []string{"boom"}, &Command{Run: func(context.Context, *Invocation) (*output.Result, error) {
		panic("kaboom")
	}})

	res, err := tree.Dispatch(context.Background(), []string{"boom"}, Session{})
	assert.Nil(t, res)
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "nimbasms boom", pe.Command)
	assert.Contains(t, pe.Error(), "kaboom")
	assert.NotEmpty(t, pe.Stack)
}

func TestDispatchNilResult(t *testing.T) {
	tree, _ := newTestTree(t)
	mustRegister(t, tree, []string{"quiet"}, &Command{Run: func(context.Context, *Invocation) (*output.Result, error) {
		return nil, nil
	}})

	res, err := tree.Dispatch(context.Background(), []string{"quiet"}, Session{})
	require.NoError(t, err)
	assert.Equal(t, output.KindText, res.Kind)
}

// Every argv either runs a handler, returns help, or fails with a
// classified error. Nothing panics and nothing else comes back.
func TestDispatchIsTotal(t *testing.T) {
	tree, _ := newTestTree(t)
	vocab := []string{
		"extensions", "actions", "list", "get", "create", "verifications",
		"ext_1", "act_2", "bad/id", "", "-", "--", "-h", "--help",
		"--name", "Foo", "--format", "json", "--verbose", "--attempts", "5",
		"--bogus", "-x", "{extension_id}", "=", "--format=yaml",
	}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2000; i++ {
		argv := make([]string, rng.IntN(7))
		for j := range argv {
			argv[j] = vocab[rng.IntN(len(vocab))]
		}

		res, err := tree.Dispatch(context.Background(), argv, Session{})
		if err != nil {
			var ce *Error
			require.True(t, errors.As(err, &ce), "argv %q: unexpected error %T: %v", argv, err, err)
			continue
		}
		require.NotNil(t, res, "argv %q", argv)
	}
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"ext_1", "3f1c-9a", "a", "AC.1:2"} {
		assert.NoError(t, ValidID(id), id)
	}
	for _, id := range []string{"", "-x", "_x", "a/b", "a b", strings.Repeat("a", MaxIDLength+1)} {
		assert.Error(t, ValidID(id), fmt.Sprintf("%q", id))
	}
}

func TestWalk(t *testing.T) {
	tree, _ := newTestTree(t)

	var paths []string
	tree.Walk(func(path string, _ *Command) { paths = append(paths, path) })
	assert.Equal(t, []string{
		"nimbasms extensions create",
		"nimbasms extensions get",
		"nimbasms extensions list",
		"nimbasms extensions <extension_id> actions get",
		"nimbasms extensions <extension_id> actions list",
		"nimbasms verifications create",
	}, paths)
}

func TestComplete(t *testing.T) {
	tree, _ := newTestTree(t)

	tests := []struct {
		name       string
		args       []string
		toComplete string
		want       []string
	}{
		{"top level", nil, "", []string{"extensions", "verifications"}},
		{"prefix", nil, "ver", []string{"verifications"}},
		{"verbs", []string{"extensions"}, "c", []string{"create"}},
		{"after id", []string{"extensions", "ext_1"}, "", []string{"actions"}},
		{"leaf flags", []string{"extensions", "create"}, "--na", []string{"--name"}},
		{"global flags at group", []string{"extensions"}, "--for", []string{"--format"}},
		{"skips global flag values", []string{"--format", "json", "extensions"}, "l", []string{"list"}},
		{"leaf has no children", []string{"extensions", "list"}, "", nil},
		{"unknown", []string{"bogus"}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tree.Complete(tt.args, tt.toComplete))
		})
	}
}

func TestErrorUsage(t *testing.T) {
	err := &Error{Kind: IncompleteCommand, Path: "nimbasms extensions", Available: []string{"create", "list"}}
	assert.Equal(t, `"nimbasms extensions" requires a subcommand (available: create, list)`, err.Error())
	assert.Equal(t, "Run 'nimbasms extensions --help' for usage.", err.Usage())
}
