// Package command routes argv through a tree of command groups to a leaf
// handler.
//
// A node is either a group (named children plus an optional capture child
// declared with a {name} path segment) or a leaf that owns a Command.
// Matching is by exact name only. A segment that names no child is captured
// as a parent resource id when the segment after it names a child of the
// capture node, so "extensions ext_1 actions list" reaches the "list" leaf
// with extension_id=ext_1.
//
// Everything that can fail before the network (routing, flag parsing,
// positional arguments, ids, custom validation) fails in Resolve.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// Handler runs a resolved leaf command.
type Handler func(ctx context.Context, inv *Invocation) (*output.Result, error)

// Arg declares a positional argument of a leaf.
type Arg struct {
	Name string
	Help string
	// ID marks a resource identifier, checked with ValidID.
	ID       bool
	Optional bool
}

// Command is the payload of a leaf node.
type Command struct {
	Short   string
	Long    string
	Example string
	Args    []Arg
	// Flags registers leaf flags. Global flags are always present.
	Flags func(fs *pflag.FlagSet)
	// Required lists flags that must be set.
	Required []string
	// Validate runs after parsing and before any I/O.
	Validate func(inv *Invocation) error
	Run      Handler
}

// Node is one element of the tree.
type Node struct {
	name     string
	short    string
	parent   *Node
	children map[string]*Node
	param    *Node
	cmd      *Command
}

func newNode(name string, parent *Node) *Node {
	return &Node{name: name, parent: parent, children: make(map[string]*Node)}
}

func (n *Node) isParam() bool {
	return n.parent != nil && n.parent.param == n
}

func (n *Node) childNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) hasChild(name string) bool {
	if name == "" {
		return false
	}
	_, ok := n.children[name]
	return ok
}

// Tree is the command registry.
type Tree struct {
	root *Node
}

// New creates an empty tree whose root is named after the program.
func New(name, short string) *Tree {
	root := newNode(name, nil)
	root.short = short
	return &Tree{root: root}
}

// Describe sets the short description of a group, creating it if needed.
func (t *Tree) Describe(path []string, short string) error {
	node, err := t.group(path)
	if err != nil {
		return err
	}
	node.short = short
	return nil
}

// Register adds a leaf at path. Segments of the form {name} declare a
// capture child for a parent resource id; the last segment must be a name.
func (t *Tree) Register(path []string, cmd *Command) error {
	if len(path) == 0 {
		return fmt.Errorf("empty command path")
	}
	if cmd == nil || cmd.Run == nil {
		return fmt.Errorf("command %q has no handler", strings.Join(path, " "))
	}
	if _, ok := paramName(path[len(path)-1]); ok {
		return fmt.Errorf("command %q: last segment cannot be a parameter", strings.Join(path, " "))
	}
	if err := checkFlags(cmd); err != nil {
		return fmt.Errorf("command %q: %w", strings.Join(path, " "), err)
	}

	parent, err := t.group(path[:len(path)-1])
	if err != nil {
		return err
	}

	name := path[len(path)-1]
	if err := checkName(name); err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return fmt.Errorf("command %q is already registered", strings.Join(path, " "))
	}

	leaf := newNode(name, parent)
	leaf.short = cmd.Short
	leaf.cmd = cmd
	parent.children[name] = leaf
	return nil
}

// group walks path from the root, creating groups as needed.
func (t *Tree) group(path []string) (*Node, error) {
	node := t.root
	for _, seg := range path {
		if node.cmd != nil {
			return nil, fmt.Errorf("cannot nest %q under command %q", strings.Join(path, " "), node.name)
		}
		if name, ok := paramName(seg); ok {
			if node.param == nil {
				node.param = newNode(name, node)
			} else if node.param.name != name {
				return nil, fmt.Errorf("conflicting parameters {%s} and {%s} under %q", node.param.name, name, node.name)
			}
			node = node.param
			continue
		}
		if err := checkName(seg); err != nil {
			return nil, err
		}
		child, ok := node.children[seg]
		if !ok {
			child = newNode(seg, node)
			node.children[seg] = child
		}
		node = child
	}
	if node.cmd != nil {
		return nil, fmt.Errorf("%q is a command, not a group", strings.Join(path, " "))
	}
	return node, nil
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "-") || strings.ContainsAny(name, "{} \t") {
		return fmt.Errorf("invalid command name %q", name)
	}
	return nil
}

// checkFlags builds the leaf flag set once so a duplicate flag fails at
// registration instead of at dispatch.
func checkFlags(cmd *Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid flags: %v", r)
		}
	}()
	fs := newFlagSet("check", cmd)
	for _, name := range cmd.Required {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("required flag --%s is not defined", name)
		}
	}
	return nil
}

func newFlagSet(name string, cmd *Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	config.RegisterFlags(fs)
	if cmd != nil && cmd.Flags != nil {
		cmd.Flags(fs)
	}
	return fs
}

// localFlags returns only the leaf's own flags, for help output.
func localFlags(cmd *Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet("local", pflag.ContinueOnError)
	fs.SortFlags = false
	if cmd != nil && cmd.Flags != nil {
		cmd.Flags(fs)
	}
	return fs
}

func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.SortFlags = false
	config.RegisterFlags(fs)
	return fs
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// MaxIDLength bounds resource identifiers.
const MaxIDLength = 128

// ValidID checks that s is a well-formed resource identifier token.
func ValidID(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("id must not be empty")
	case len(s) > MaxIDLength:
		return fmt.Errorf("id is longer than %d characters", MaxIDLength)
	case !idPattern.MatchString(s):
		return fmt.Errorf("malformed id %q", s)
	}
	return nil
}

// Resolve routes argv to a leaf and parses its flags and arguments.
// A help request returns an Invocation with Help set.
func (t *Tree) Resolve(argv []string) (*Invocation, error) {
	node := t.root
	params := api.Params{}
	var globals []string
	help := false

	i := 0
descend:
	for i < len(argv) && node.cmd == nil {
		tok := argv[i]
		switch {
		case tok == "--":
			break descend
		case isHelp(tok):
			help = true
			i++
		case isFlag(tok):
			n := globalFlagSpan(argv, i)
			if n == 0 {
				break descend
			}
			globals = append(globals, argv[i:i+n]...)
			i += n
		default:
			if child, ok := node.children[tok]; ok {
				node = child
				i++
				continue
			}
			if node.param != nil && node.param.hasChild(nextSegment(argv, i+1)) {
				if err := ValidID(tok); err != nil {
					return nil, &Error{Kind: InvalidArgument, Path: t.displayPath(node), Name: "<" + node.param.name + ">", Reason: err.Error()}
				}
				params[node.param.name] = tok
				node = node.param
				i++
				continue
			}
			break descend
		}
	}

	path := t.displayPath(node)

	if node.cmd == nil {
		if help {
			return &Invocation{CommandPath: path, Help: t.groupHelp(node)}, nil
		}
		if i < len(argv) && argv[i] == "--" {
			i++
		}
		if i < len(argv) {
			tok := argv[i]
			if isFlag(tok) {
				return nil, &Error{Kind: InvalidArgument, Path: path, Name: tok, Reason: "unknown flag"}
			}
			return nil, &Error{Kind: UnknownCommand, Path: path, Name: tok, Available: t.available(node)}
		}
		return nil, &Error{Kind: IncompleteCommand, Path: path, Available: t.available(node)}
	}

	rest := append(append([]string{}, globals...), argv[i:]...)
	if help || wantsHelp(rest) {
		return &Invocation{CommandPath: path, Command: node.cmd, Help: t.leafHelp(node)}, nil
	}

	fail := func(e *Error) (*Invocation, error) {
		e.Path = path
		return nil, e
	}

	cmd := node.cmd
	fs := newFlagSet(path, cmd)
	if err := fs.Parse(rest); err != nil {
		return fail(&Error{Kind: InvalidArgument, Name: flagFromError(err), Reason: err.Error()})
	}

	var flagErr *Error
	fs.Visit(func(f *pflag.Flag) {
		if flagErr != nil {
			return
		}
		if err := config.CheckFlagValue(f.Name, f.Value.String()); err != nil {
			flagErr = Invalid("--"+f.Name, "%v", err)
		}
	})
	if flagErr != nil {
		return fail(flagErr)
	}

	inv := &Invocation{
		CommandPath: path,
		Command:     cmd,
		Params:      params,
		Args:        make(map[string]string),
		Flags:       fs,
	}

	positional := fs.Args()
	required := 0
	for _, a := range cmd.Args {
		if !a.Optional {
			required++
		}
	}
	if len(positional) < required {
		return fail(Invalid("<"+cmd.Args[len(positional)].Name+">", "missing required argument"))
	}
	if len(positional) > len(cmd.Args) {
		return fail(Invalid(fmt.Sprintf("%q", positional[len(cmd.Args)]), "unexpected argument"))
	}
	for idx, value := range positional {
		a := cmd.Args[idx]
		if a.ID {
			if err := ValidID(value); err != nil {
				return fail(Invalid("<"+a.Name+">", "%v", err))
			}
		}
		inv.Args[a.Name] = value
	}

	for _, name := range cmd.Required {
		f := fs.Lookup(name)
		if !f.Changed {
			return fail(Invalid("--"+name, "required flag not set"))
		}
		if f.Value.Type() == "string" && strings.TrimSpace(f.Value.String()) == "" {
			return fail(Invalid("--"+name, "must not be empty"))
		}
	}

	if cmd.Validate != nil {
		if err := cmd.Validate(inv); err != nil {
			var ce *Error
			if errors.As(err, &ce) {
				return fail(ce)
			}
			return fail(&Error{Kind: InvalidArgument, Reason: err.Error()})
		}
	}

	return inv, nil
}

// Session supplies what a handler needs beyond its arguments.
type Session struct {
	// Config resolves settings from the leaf's parsed flags.
	Config func(flags *pflag.FlagSet) (*config.ResolvedConfig, error)
	// Client builds the API client. Nil leaves Invocation.Client unset.
	Client func(cfg *config.ResolvedConfig) (*api.Client, error)
}

// Dispatch resolves argv, resolves configuration and runs the handler.
// It never panics: a panicking handler yields a *PanicError.
func (t *Tree) Dispatch(ctx context.Context, argv []string, s Session) (res *output.Result, err error) {
	cmdPath := t.root.name
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &PanicError{Command: cmdPath, Value: r, Stack: debug.Stack()}
		}
	}()

	inv, err := t.Resolve(argv)
	if err != nil {
		return nil, err
	}
	cmdPath = inv.CommandPath
	if inv.Help != "" {
		return output.Help(inv.Help), nil
	}

	if s.Config != nil {
		cfg, err := s.Config(inv.Flags)
		if err != nil {
			return nil, err
		}
		inv.Config = cfg
	}
	if s.Client != nil && inv.Config != nil {
		client, err := s.Client(inv.Config)
		if err != nil {
			return nil, err
		}
		inv.Client = client
	}

	res, err = inv.Command.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = output.Message("")
	}
	return res, nil
}

// Walk calls fn for every leaf, in path order.
func (t *Tree) Walk(fn func(path string, cmd *Command)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.cmd != nil {
			fn(t.displayPath(n), n.cmd)
			return
		}
		for _, name := range n.childNames() {
			visit(n.children[name])
		}
		if n.param != nil {
			visit(n.param)
		}
	}
	visit(t.root)
}

// displayPath renders the path of n, capture nodes as <name>.
func (t *Tree) displayPath(n *Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		if cur.isParam() {
			parts = append(parts, "<"+cur.name+">")
		} else {
			parts = append(parts, cur.name)
		}
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, " ")
}

// available lists the children of n, including those reached through its
// capture child.
func (t *Tree) available(n *Node) []string {
	names := n.childNames()
	if n.param != nil {
		for _, name := range n.param.childNames() {
			names = append(names, "<"+n.param.name+"> "+name)
		}
	}
	return names
}

func isHelp(tok string) bool {
	return tok == "-h" || tok == "--help"
}

func isFlag(tok string) bool {
	return len(tok) > 1 && strings.HasPrefix(tok, "-")
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if isHelp(a) {
			return true
		}
	}
	return false
}

// globalFlagSpan returns how many tokens the global flag at argv[i] uses,
// or 0 when argv[i] is not a global flag.
func globalFlagSpan(argv []string, i int) int {
	name, hasValue := splitFlag(argv[i])
	known, takesValue := config.GlobalFlagTakesValue(name)
	if !known {
		return 0
	}
	if takesValue && !hasValue && i+1 < len(argv) {
		return 2
	}
	return 1
}

func splitFlag(tok string) (name string, hasValue bool) {
	name = strings.TrimLeft(tok, "-")
	if idx := strings.IndexByte(name, '='); idx >= 0 {
		return name[:idx], true
	}
	return name, false
}

// nextSegment returns the first non-flag token at or after j.
func nextSegment(argv []string, j int) string {
	for j < len(argv) {
		tok := argv[j]
		switch {
		case tok == "--":
			return ""
		case isHelp(tok):
			j++
		case isFlag(tok):
			n := globalFlagSpan(argv, j)
			if n == 0 {
				return ""
			}
			j += n
		default:
			return tok
		}
	}
	return ""
}

var flagInError = regexp.MustCompile(`-{1,2}[A-Za-z0-9][A-Za-z0-9_-]*`)

func flagFromError(err error) string {
	matches := flagInError.FindAllString(err.Error(), -1)
	for _, m := range matches {
		if strings.HasPrefix(m, "--") {
			return m
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
