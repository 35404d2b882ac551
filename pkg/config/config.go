// Package config resolves the settings of a single nimbasms invocation.
//
// Settings are merged from four layers, highest precedence first:
//
//  1. command-line flags (--api-key, --api-url, --timeout, ...)
//  2. environment variables (NIMBASMS_API_KEY, NIMBASMS_API_URL, ...)
//  3. the YAML config file (~/.nimbasms/config or $XDG_CONFIG_HOME/nimbasms/config.yaml)
//  4. built-in defaults
//
// Each layer is optional. The merge is done per key by a private viper
// instance, so a value set in a lower layer survives when a higher layer
// leaves the key unset. Resolution is pure apart from the single config file
// read and an optional keyring lookup for the API key.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName is used for directories, the keyring service and the env prefix.
const AppName = "nimbasms"

// EnvPrefix prefixes every environment variable read by the resolver.
const EnvPrefix = "NIMBASMS"

// Config keys as they appear in the YAML file.
const (
	KeyAPIURL      = "api_url"
	KeyAPIKey      = "api_key"
	KeyServiceID   = "service_id"
	KeyTimeout     = "timeout"
	KeyFormat      = "format"
	KeyVerbose     = "verbose"
	KeyNoColor     = "no_color"
	KeyMaxAttempts = "max_attempts"
	KeyRateLimit   = "rate_limit"
)

// Global flag names shared by every command.
const (
	FlagConfig    = "config"
	FlagAPIURL    = "api-url"
	FlagAPIKey    = "api-key"
	FlagServiceID = "service-id"
	FlagTimeout   = "timeout"
	FlagFormat    = "format"
	FlagVerbose   = "verbose"
	FlagNoColor   = "no-color"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DefaultAPIURL is the production Nimba SMS endpoint.
const DefaultAPIURL = "https://api.nimbasms.com/v1"

// Keys lists every known config key in display order.
var Keys = []string{
	KeyAPIURL, KeyAPIKey, KeyServiceID, KeyTimeout, KeyFormat,
	KeyVerbose, KeyNoColor, KeyMaxAttempts, KeyRateLimit,
}

// flagKeys maps flag names to the config key they override.
var flagKeys = map[string]string{
	FlagAPIURL:    KeyAPIURL,
	FlagAPIKey:    KeyAPIKey,
	FlagServiceID: KeyServiceID,
	FlagTimeout:   KeyTimeout,
	FlagFormat:    KeyFormat,
	FlagVerbose:   KeyVerbose,
	FlagNoColor:   KeyNoColor,
}

// Layer names the source a resolved value came from.
type Layer string

const (
	LayerDefault Layer = "default"
	LayerFile    Layer = "file"
	LayerKeyring Layer = "keyring"
	LayerEnv     Layer = "env"
	LayerFlag    Layer = "flag"
)

// ResolvedConfig is the merged settings value for one invocation.
// It is built once by Resolve and must not be modified afterwards.
type ResolvedConfig struct {
	APIURL      string
	APIKey      string
	ServiceID   string
	Timeout     time.Duration
	Format      string
	Verbose     bool
	NoColor     bool
	MaxAttempts int
	RateLimit   float64

	// FilePath is the config file that was read, empty when none was.
	FilePath string
	// Sources records which layer supplied each key.
	Sources map[string]Layer
}

// Defaults returns the built-in default layer.
func Defaults() map[string]any {
	return map[string]any{
		KeyAPIURL:      DefaultAPIURL,
		KeyTimeout:     "30s",
		KeyFormat:      FormatTable,
		KeyVerbose:     false,
		KeyNoColor:     false,
		KeyMaxAttempts: 3,
		KeyRateLimit:   0,
	}
}

// EnvVar returns the environment variable bound to a config key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// CredentialStore looks up a secret for a keyring user.
type CredentialStore interface {
	Get(user string) (string, error)
}

// Options configures Resolve.
type Options struct {
	// Defaults overrides the built-in default layer when non-nil.
	Defaults map[string]any
	// FilePath is an explicit config file; it must exist and parse.
	FilePath string
	// SearchPaths are tried in order when FilePath is empty. Missing files are skipped.
	SearchPaths []string
	// Env looks up environment variables. Defaults to os.LookupEnv.
	Env func(key string) (string, bool)
	// Flags holds parsed command-line flags. Only changed flags take part.
	Flags *pflag.FlagSet
	// Credentials is consulted when no layer supplies an API key.
	Credentials CredentialStore
	// Logger receives debug output; nil discards it.
	Logger *slog.Logger
}

// DefaultSearchPaths returns the conventional config file locations.
func DefaultSearchPaths() []string {
	return []string{
		filepath.Join(xdg.Home, "."+AppName, "config"),
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
	}
}

// RegisterFlags adds the global flags to a flag set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Path to the config file")
	fs.String(FlagAPIURL, "", "Base URL of the Nimba SMS API")
	fs.String(FlagAPIKey, "", "API key (secret token)")
	fs.String(FlagServiceID, "", "Service ID used with the API key for basic auth")
	fs.String(FlagTimeout, "", "Overall timeout per API call (e.g. 30s)")
	fs.String(FlagFormat, "", "Output format (table|json|yaml)")
	fs.Bool(FlagVerbose, false, "Enable verbose logging")
	fs.Bool(FlagNoColor, false, "Disable colored output")
}

// GlobalFlagTakesValue reports whether a global flag consumes the next argument.
func GlobalFlagTakesValue(name string) (known bool, takesValue bool) {
	switch name {
	case FlagVerbose, FlagNoColor:
		return true, false
	case FlagConfig, FlagAPIURL, FlagAPIKey, FlagServiceID, FlagTimeout, FlagFormat:
		return true, true
	}
	return false, false
}

// CheckFlagValue validates a global flag value given on the command line,
// so a bad value is reported against the flag rather than the config key.
func CheckFlagValue(name, value string) error {
	switch name {
	case FlagTimeout:
		_, err := parseTimeout(value)
		return err
	case FlagFormat:
		return checkFormat(strings.ToLower(strings.TrimSpace(value)))
	case FlagAPIURL:
		return validateURL(strings.TrimRight(strings.TrimSpace(value), "/"))
	}
	return nil
}

// Resolve merges all layers into a ResolvedConfig.
func Resolve(opts Options) (*ResolvedConfig, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Env == nil {
		opts.Env = os.LookupEnv
	}

	v := viper.New()
	v.SetConfigType("yaml")

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Defaults()
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	path, err := locateFile(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Kind: Malformed, Path: path, Detail: err.Error(), Err: err}
		}
		logger.Debug("loaded config file", "path", path)
	}

	if opts.Flags != nil {
		for flagName, key := range flagKeys {
			flag := opts.Flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", flagName, err)
			}
		}
	}

	// v.Set outranks bound flags, so env values only apply to keys no flag set.
	fromEnv := make(map[string]bool)
	for _, key := range Keys {
		value, ok := opts.Env(EnvVar(key))
		if !ok || value == "" || flagChanged(opts.Flags, key) {
			continue
		}
		v.Set(key, value)
		fromEnv[key] = true
	}

	cfg := &ResolvedConfig{
		APIURL:    strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		APIKey:    strings.TrimSpace(v.GetString(KeyAPIKey)),
		ServiceID: strings.TrimSpace(v.GetString(KeyServiceID)),
		Format:    strings.ToLower(strings.TrimSpace(v.GetString(KeyFormat))),
		Verbose:   v.GetBool(KeyVerbose),
		NoColor:   v.GetBool(KeyNoColor),
		FilePath:  path,
		Sources:   make(map[string]Layer, len(Keys)),
	}
	for _, key := range Keys {
		cfg.Sources[key] = sourceOf(v, opts.Flags, fromEnv, key)
	}

	if _, ok := opts.Env("NO_COLOR"); ok && cfg.Sources[KeyNoColor] != LayerFlag {
		cfg.NoColor = true
	}

	if cfg.Timeout, err = parseTimeout(v.GetString(KeyTimeout)); err != nil {
		return nil, &Error{Kind: Invalid, Key: KeyTimeout, Detail: err.Error(), Err: err}
	}

	if cfg.MaxAttempts, err = strconv.Atoi(v.GetString(KeyMaxAttempts)); err != nil || cfg.MaxAttempts < 1 {
		return nil, &Error{Kind: Invalid, Key: KeyMaxAttempts, Detail: "must be a positive integer"}
	}

	if cfg.RateLimit, err = strconv.ParseFloat(v.GetString(KeyRateLimit), 64); err != nil || cfg.RateLimit < 0 {
		return nil, &Error{Kind: Invalid, Key: KeyRateLimit, Detail: "must be a non-negative number"}
	}

	if err := checkFormat(cfg.Format); err != nil {
		return nil, &Error{Kind: Invalid, Key: KeyFormat, Detail: err.Error()}
	}

	if err := validateURL(cfg.APIURL); err != nil {
		return nil, &Error{Kind: Invalid, Key: KeyAPIURL, Detail: err.Error()}
	}

	if cfg.APIKey == "" && opts.Credentials != nil {
		user := cfg.ServiceID
		if user == "" {
			user = DefaultKeyringUser
		}
		secret, err := opts.Credentials.Get(user)
		switch {
		case err == nil && secret != "":
			cfg.APIKey = secret
			cfg.Sources[KeyAPIKey] = LayerKeyring
			logger.Debug("api key loaded from keyring", "user", user)
		case err != nil && !errors.Is(err, ErrNoCredential):
			logger.Debug("keyring lookup failed", "error", err)
		}
	}

	if cfg.APIKey == "" {
		return nil, &Error{Kind: MissingCredential, Key: KeyAPIKey}
	}

	return cfg, nil
}

// locateFile picks the config file to read, if any.
func locateFile(opts Options) (string, error) {
	path := opts.FilePath
	if path == "" && opts.Flags != nil {
		if flag := opts.Flags.Lookup(FlagConfig); flag != nil && flag.Changed {
			path = flag.Value.String()
		}
	}
	if path == "" && opts.Env != nil {
		path, _ = opts.Env(EnvVar(FlagConfig))
	}

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", &Error{Kind: Malformed, Path: path, Detail: "cannot read file", Err: err}
		}
		if info.IsDir() {
			return "", &Error{Kind: Malformed, Path: path, Detail: "is a directory"}
		}
		return path, nil
	}

	for _, candidate := range opts.SearchPaths {
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", &Error{Kind: Malformed, Path: candidate, Detail: "cannot read file", Err: err}
		}
		if !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}

// flagChanged reports whether a command-line flag set key.
func flagChanged(flags *pflag.FlagSet, key string) bool {
	if flags == nil {
		return false
	}
	for flagName, k := range flagKeys {
		if k != key {
			continue
		}
		if flag := flags.Lookup(flagName); flag != nil && flag.Changed {
			return true
		}
	}
	return false
}

// sourceOf reports the highest layer that sets key.
func sourceOf(v *viper.Viper, flags *pflag.FlagSet, fromEnv map[string]bool, key string) Layer {
	if flagChanged(flags, key) {
		return LayerFlag
	}
	if fromEnv[key] {
		return LayerEnv
	}
	if v.InConfig(key) {
		return LayerFile
	}
	return LayerDefault
}

// parseTimeout accepts Go durations ("45s", "2m") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("timeout is empty")
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return d, nil
}

func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
