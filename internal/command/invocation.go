package command

import (
	"github.com/spf13/pflag"

	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
)

// Invocation is a resolved leaf call. Handlers read everything they need
// from it; nothing is taken from process-wide state.
type Invocation struct {
	// CommandPath is the display path, e.g. "nimbasms extensions <extension_id> actions list".
	CommandPath string
	Command     *Command
	// Params holds captured parent ids keyed by parameter name.
	Params api.Params
	// Args holds positional arguments keyed by Arg.Name.
	Args  map[string]string
	Flags *pflag.FlagSet
	// Help is set instead of the fields below when help was requested.
	Help string

	Config *config.ResolvedConfig
	Client *api.Client
}

// Arg returns a positional argument, empty when absent.
func (inv *Invocation) Arg(name string) string {
	return inv.Args[name]
}

// Param returns a captured parent id.
func (inv *Invocation) Param(name string) string {
	return inv.Params[name]
}

// Changed reports whether a flag was set on the command line.
func (inv *Invocation) Changed(name string) bool {
	f := inv.Flags.Lookup(name)
	return f != nil && f.Changed
}

// String returns a string flag value.
func (inv *Invocation) String(name string) string {
	v, _ := inv.Flags.GetString(name)
	return v
}

// Bool returns a bool flag value.
func (inv *Invocation) Bool(name string) bool {
	v, _ := inv.Flags.GetBool(name)
	return v
}

// Int returns an int flag value.
func (inv *Invocation) Int(name string) int {
	v, _ := inv.Flags.GetInt(name)
	return v
}

// Strings returns a string slice flag value.
func (inv *Invocation) Strings(name string) []string {
	v, _ := inv.Flags.GetStringSlice(name)
	return v
}
