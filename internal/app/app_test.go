package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbasms/nimbasms-cli/internal/testutil"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// emptyKeyring never holds a credential.
type emptyKeyring struct{}

func (emptyKeyring) Get(string) (string, error) { return "", config.ErrNoCredential }

type runResult struct {
	code   int
	stdout string
	stderr string
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range config.Keys {
		t.Setenv(config.EnvVar(key), "")
	}
	t.Setenv(config.EnvVar(config.FlagConfig), "")
	t.Setenv("NO_COLOR", "1")
}

func run(t *testing.T, ctx context.Context, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	off := false
	a, err := New(Options{
		Stdout:      &stdout,
		Stderr:      &stderr,
		Version:     "test",
		SearchPaths: []string{filepath.Join(t.TempDir(), "config.yaml")},
		Credentials: emptyKeyring{},
		Spinner:     &off,
	})
	require.NoError(t, err)

	code := a.Run(ctx, args)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCreateExtensionRendersTable(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	server.OnPOST("/extensions", testutil.JSONResponse(http.StatusCreated, map[string]any{"id": "ext_1", "name": "Foo"}))
	t.Setenv("NIMBASMS_API_KEY", "secret")

	res := run(t, context.Background(), "--api-url", server.URL(), "extensions", "create", "--name", "Foo", "--base-api-url", "https://x")

	assert.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ext_1")
	assert.Contains(t, res.stdout, "Foo")

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "nimbasms/test", reqs[0].Headers.Get("User-Agent"))
	assert.Equal(t, "Bearer secret", reqs[0].Headers.Get("Authorization"))
}

func TestMissingRequiredFlagIsUsageError(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	t.Setenv("NIMBASMS_API_KEY", "secret")

	res := run(t, context.Background(), "--api-url", server.URL(), "extensions", "create", "--base-api-url", "https://x")

	assert.Equal(t, output.ExitUsage, res.code)
	assert.Contains(t, res.stderr, "--name")
	assert.Empty(t, res.stdout)
	assert.Zero(t, server.RequestCount())
}

func TestUnknownExtensionIsNotFound(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	t.Setenv("NIMBASMS_API_KEY", "secret")

	res := run(t, context.Background(), "--api-url", server.URL(), "extensions", "get", "unknown_id")

	assert.Equal(t, output.ExitFailure, res.code)
	assert.Contains(t, res.stderr, "not found")
}

func TestMissingCredential(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)

	res := run(t, context.Background(), "--api-url", server.URL(), "extensions", "list")

	assert.NotEqual(t, output.ExitOK, res.code)
	assert.Equal(t, output.ExitConfig, res.code)
	assert.Contains(t, res.stderr, "MissingCredential")
	assert.Contains(t, res.stderr, "NIMBASMS_API_KEY")
	assert.Zero(t, server.RequestCount())
}

func TestNestedExtensionID(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	server.OnGET("/extensions/ext_7/plans", testutil.JSONResponse(http.StatusOK, map[string]any{
		"results": []map[string]any{{"pricingplanid": "p1", "name": "Pro", "price": "9.99", "billing_period": "monthly"}},
	}))
	t.Setenv("NIMBASMS_API_KEY", "secret")

	res := run(t, context.Background(), "extensions", "ext_7", "plans", "list", "--api-url", server.URL())

	assert.Equal(t, output.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "p1")
	assert.Contains(t, res.stdout, "monthly")
	require.Equal(t, 1, server.RequestCount())
	assert.Equal(t, "/extensions/ext_7/plans", server.Requests()[0].Path)
}

func TestJSONOutput(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	server.OnGET("/accounts", testutil.RawResponse(http.StatusOK, `{"sid":"svc","balance":120}`))
	t.Setenv("NIMBASMS_API_KEY", "secret")
	t.Setenv("NIMBASMS_FORMAT", "json")

	res := run(t, context.Background(), "--api-url", server.URL(), "account", "balance")

	require.Equal(t, output.ExitOK, res.code, res.stderr)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, map[string]any{"sid": "svc", "balance": float64(120)}, got)
}

func TestErrorReportHonorsFormatFlag(t *testing.T) {
	clearEnv(t)

	res := run(t, context.Background(), "--format", "json", "extensions", "list")

	assert.Equal(t, output.ExitConfig, res.code)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &report), res.stderr)
	assert.Equal(t, "config: MissingCredential", report["kind"])
	assert.Equal(t, float64(output.ExitConfig), report["exit_code"])
}

func TestErrorReportHonorsFormatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NIMBASMS_FORMAT", "json")

	res := run(t, context.Background(), "extensions", "list")

	assert.Equal(t, output.ExitConfig, res.code)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &report), res.stderr)
	assert.Equal(t, "config: MissingCredential", report["kind"])
}

func TestBadGlobalFlagIsUsageError(t *testing.T) {
	tests := []struct {
		flag  string
		value string
	}{
		{"--format", "xml"},
		{"--timeout", "abc"},
		{"--api-url", "ftp://x"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			clearEnv(t)
			server := testutil.NewMockServer(t)
			t.Setenv("NIMBASMS_API_KEY", "secret")

			res := run(t, context.Background(), tt.flag, tt.value, "extensions", "list")

			assert.Equal(t, output.ExitUsage, res.code)
			assert.Contains(t, res.stderr, tt.flag)
			assert.Zero(t, server.RequestCount())
		})
	}
}

func TestBadEnvValueIsConfigError(t *testing.T) {
	clearEnv(t)
	t.Setenv("NIMBASMS_API_KEY", "secret")
	t.Setenv("NIMBASMS_TIMEOUT", "abc")

	res := run(t, context.Background(), "extensions", "list")

	assert.Equal(t, output.ExitConfig, res.code)
	assert.Contains(t, res.stderr, "timeout")
}

func TestSchemaMismatchIsFailure(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	server.OnGET("/extensions/e1", testutil.RawResponse(http.StatusOK, `{"id":"e1","auth_type":"kerberos"}`))
	t.Setenv("NIMBASMS_API_KEY", "secret")

	res := run(t, context.Background(), "--api-url", server.URL(), "extensions", "get", "e1")

	assert.Equal(t, output.ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Extension schema")
}

func TestHelpAndUsage(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"root help", []string{"--help"}, output.ExitOK, "extensions", ""},
		{"group help", []string{"extensions", "-h"}, output.ExitOK, "upload-logo", ""},
		{"nested help", []string{"extensions", "e1", "actions", "create", "--help"}, output.ExitOK, "--method", ""},
		{"incomplete", []string{"extensions"}, output.ExitUsage, "", "requires a subcommand"},
		{"unknown", []string{"extenshuns", "list"}, output.ExitUsage, "", "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, context.Background(), tt.args...)
			assert.Equal(t, tt.wantCode, res.code)
			assert.Contains(t, res.stdout, tt.wantStdout)
			assert.Contains(t, res.stderr, tt.wantStderr)
		})
	}
}

func TestCanceledContext(t *testing.T) {
	clearEnv(t)
	server := testutil.NewMockServer(t)
	t.Setenv("NIMBASMS_API_KEY", "secret")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := run(t, ctx, "--api-url", server.URL(), "extensions", "list")
	assert.Equal(t, output.ExitInterrupted, res.code)
}

func TestSettingsFromRawFlags(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("NO_COLOR"))

	tests := []struct {
		args        []string
		wantFormat  string
		wantNoColor bool
	}{
		{nil, config.FormatTable, false},
		{[]string{"--format", "YAML", "extensions"}, "yaml", false},
		{[]string{"--format=json", "--no-color"}, "json", true},
		{[]string{"--", "--format", "json"}, config.FormatTable, false},
	}
	for _, tt := range tests {
		format, noColor := (&invocation{}).settings(tt.args)
		assert.Equal(t, tt.wantFormat, format, tt.args)
		assert.Equal(t, tt.wantNoColor, noColor, tt.args)
	}

	t.Setenv("NIMBASMS_FORMAT", "JSON")
	t.Setenv("NIMBASMS_NO_COLOR", "true")
	format, noColor := (&invocation{}).settings(nil)
	assert.Equal(t, config.FormatJSON, format)
	assert.True(t, noColor)
	format, _ = (&invocation{}).settings([]string{"--format", "yaml"})
	assert.Equal(t, config.FormatYAML, format)

	inv := &invocation{cfg: &config.ResolvedConfig{Format: config.FormatYAML, NoColor: true}}
	format, noColor = inv.settings([]string{"--format", "json"})
	assert.Equal(t, config.FormatYAML, format)
	assert.True(t, noColor)
}
