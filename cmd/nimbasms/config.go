package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nimbasms/nimbasms-cli/internal/app"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// secretStore is the part of the keyring the config commands use.
type secretStore interface {
	Set(user, secret string) error
	Delete(user string) error
}

type configCmd struct {
	in      io.Reader
	out     io.Writer
	path    string
	paths   []string
	keyring func() (secretStore, error)
}

func newConfigCmd(in io.Reader, out io.Writer, opts app.Options) *cobra.Command {
	c := &configCmd{in: in, out: out, paths: opts.SearchPaths}
	if c.paths == nil {
		c.paths = config.DefaultSearchPaths()
	}
	c.keyring = func() (secretStore, error) {
		if store, ok := opts.Credentials.(secretStore); ok {
			return store, nil
		}
		return config.NewKeyringStore(config.AppName)
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the nimbasms configuration file and the API key stored in the OS keyring.

The file is read from the first existing location of:
  ` + strings.Join(c.paths, "\n  ") + `

Values from flags and NIMBASMS_* environment variables take precedence over the file.`,
		Args: usageArgs(cobra.NoArgs),
	}
	cmd.PersistentFlags().StringVar(&c.path, config.FlagConfig, "", "Path to the config file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a configuration value",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE:  func(_ *cobra.Command, args []string) error { return c.get(args[0]) },
		},
		&cobra.Command{
			Use:     "set <key> <value>",
			Short:   "Set a configuration value",
			Example: "  nimbasms config set api_url https://api.nimbasms.com/v1\n  nimbasms config set format json",
			Args:    usageArgs(cobra.ExactArgs(2)),
			RunE:    func(_ *cobra.Command, args []string) error { return c.set(args[0], args[1]) },
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a configuration value",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE:  func(_ *cobra.Command, args []string) error { return c.unset(args[0]) },
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the values in the config file",
			Args:  usageArgs(cobra.NoArgs),
			RunE:  func(*cobra.Command, []string) error { return c.list() },
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(*cobra.Command, []string) error {
				_, err := fmt.Fprintln(c.out, c.store().Path())
				return err
			},
		},
		&cobra.Command{
			Use:   "set-secret [api-key]",
			Short: "Store the API key in the OS keyring",
			Long: `Store the API key in the OS keyring. Without an argument the key is read from
the terminal without echo, or from the first line of standard input.

The key is stored for the configured service id, or for "default".`,
			Args: usageArgs(cobra.MaximumNArgs(1)),
			RunE: func(_ *cobra.Command, args []string) error { return c.setSecret(args) },
		},
		&cobra.Command{
			Use:   "delete-secret",
			Short: "Remove the API key from the OS keyring",
			Args:  usageArgs(cobra.NoArgs),
			RunE:  func(*cobra.Command, []string) error { return c.deleteSecret() },
		},
	)
	return cmd
}

func (c *configCmd) store() *config.Store {
	if c.path != "" {
		return config.NewStore(c.path)
	}
	if env := os.Getenv(config.EnvVar(config.FlagConfig)); env != "" {
		return config.NewStore(env)
	}
	return config.NewStore(config.DefaultStorePath(c.paths))
}

func (c *configCmd) get(key string) error {
	value, ok, err := c.store().Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return &exitError{err: fmt.Errorf("%s is not set in %s", key, c.store().Path()), code: output.ExitFailure}
	}
	_, err = fmt.Fprintln(c.out, displayValue(key, value))
	return err
}

func (c *configCmd) set(key, value string) error {
	store := c.store()
	if err := store.Set(key, value); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Set %s = %s in %s\n", key, displayValue(key, value), store.Path())
	return err
}

func (c *configCmd) unset(key string) error {
	if err := c.store().Unset(key); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Unset %s\n", key)
	return err
}

func (c *configCmd) list() error {
	values, err := c.store().Load()
	if err != nil {
		return err
	}
	items := make([]json.RawMessage, 0, len(values))
	for _, key := range config.SortedKeys(values) {
		raw, err := json.Marshal(map[string]string{"key": key, "value": displayValue(key, values[key])})
		if err != nil {
			return err
		}
		items = append(items, raw)
	}
	result := output.List("settings", items, output.Col("KEY", "key"), output.Col("VALUE", "value"))
	return output.NewManager().Render(c.out, result, config.FormatTable)
}

func (c *configCmd) keyringUser() string {
	if value, ok, err := c.store().Get(config.KeyServiceID); err == nil && ok {
		if s := fmt.Sprint(value); s != "" {
			return s
		}
	}
	if id := os.Getenv(config.EnvVar(config.KeyServiceID)); id != "" {
		return id
	}
	return config.DefaultKeyringUser
}

func (c *configCmd) setSecret(args []string) error {
	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		var err error
		if secret, err = readSecret(c.in, c.out); err != nil {
			return err
		}
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return usageError(errors.New("API key must not be empty"))
	}

	store, err := c.keyring()
	if err != nil {
		return err
	}
	user := c.keyringUser()
	if err := store.Set(user, secret); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Stored API key for %q in the keyring\n", user)
	return err
}

func (c *configCmd) deleteSecret() error {
	store, err := c.keyring()
	if err != nil {
		return err
	}
	user := c.keyringUser()
	if err := store.Delete(user); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Removed API key for %q from the keyring\n", user)
	return err
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "API key: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return string(secret), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return line, nil
}

// displayValue masks the API key.
func displayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if key != config.KeyAPIKey {
		return s
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
