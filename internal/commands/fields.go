package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nimbasms/nimbasms-cli/internal/command"
)

type fieldKind int

const (
	textField fieldKind = iota
	intField
	boolField
	listField
	// objectField takes a JSON object literal, e.g. --features '{"sms":100}'.
	objectField
)

// field maps one flag to one key of a request body.
type field struct {
	Flag string
	// Key is the JSON body key; defaults to the flag name in snake_case.
	Key  string
	Kind fieldKind
	Help string
	// Enum restricts text values.
	Enum []string
	// Min and Max bound int values when Max > 0.
	Min, Max int
	// URL requires an absolute http(s) URL.
	URL bool
}

func (f field) key() string {
	if f.Key != "" {
		return f.Key
	}
	return toBodyKey(f.Flag)
}

// toBodyKey converts a flag name to a body key: base-api-url → base_api_url.
func toBodyKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func (f field) help() string {
	help := f.Help
	if len(f.Enum) > 0 {
		help += " (" + strings.Join(f.Enum, "|") + ")"
	}
	if f.Max > 0 {
		help += fmt.Sprintf(" (%d-%d)", f.Min, f.Max)
	}
	return help
}

// addFieldFlags registers one flag per field.
func addFieldFlags(fs *pflag.FlagSet, fields []field) {
	for _, f := range fields {
		switch f.Kind {
		case intField:
			fs.Int(f.Flag, 0, f.help())
		case boolField:
			fs.Bool(f.Flag, false, f.help())
		case listField:
			fs.StringSlice(f.Flag, nil, f.help())
		default:
			fs.String(f.Flag, "", f.help())
		}
	}
}

// flagsFor returns a Command.Flags function registering fields.
func flagsFor(fields []field) func(*pflag.FlagSet) {
	return func(fs *pflag.FlagSet) { addFieldFlags(fs, fields) }
}

// checkFields validates the fields set on the command line.
func checkFields(inv *command.Invocation, fields []field) error {
	for _, f := range fields {
		if !inv.Changed(f.Flag) {
			continue
		}
		name := "--" + f.Flag
		switch f.Kind {
		case textField:
			v := inv.String(f.Flag)
			if len(f.Enum) > 0 && !slices.Contains(f.Enum, v) {
				return command.Invalid(name, "must be one of %s, got %q", strings.Join(f.Enum, ", "), v)
			}
			if f.URL {
				if err := checkURL(v); err != nil {
					return command.Invalid(name, "%v", err)
				}
			}
		case intField:
			v := inv.Int(f.Flag)
			if f.Max > 0 && (v < f.Min || v > f.Max) {
				return command.Invalid(name, "must be between %d and %d, got %d", f.Min, f.Max, v)
			}
		case objectField:
			if _, err := parseObject(inv.String(f.Flag)); err != nil {
				return command.Invalid(name, "%v", err)
			}
		}
	}
	return nil
}

// bodyFromFlags builds a request body from the fields set on the command
// line. Unset flags are left out so PATCH bodies stay partial.
func bodyFromFlags(inv *command.Invocation, fields []field) (map[string]any, error) {
	body := make(map[string]any)
	for _, f := range fields {
		if !inv.Changed(f.Flag) {
			continue
		}
		switch f.Kind {
		case intField:
			body[f.key()] = inv.Int(f.Flag)
		case boolField:
			body[f.key()] = inv.Bool(f.Flag)
		case listField:
			body[f.key()] = inv.Strings(f.Flag)
		case objectField:
			obj, err := parseObject(inv.String(f.Flag))
			if err != nil {
				return nil, command.Invalid("--"+f.Flag, "%v", err)
			}
			body[f.key()] = obj
		default:
			body[f.key()] = inv.String(f.Flag)
		}
	}
	return body, nil
}

// anyChanged reports whether at least one field flag was set.
func anyChanged(inv *command.Invocation, fields []field) bool {
	for _, f := range fields {
		if inv.Changed(f.Flag) {
			return true
		}
	}
	return false
}

func parseObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return obj, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}
