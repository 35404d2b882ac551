package output

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pterm/pterm"

	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
)

// Process exit codes. 70, 77 and 78 follow sysexits.h.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitSoftware    = 70
	ExitNoPerm      = 77
	ExitConfig      = 78
	ExitInterrupted = 130
)

// ExitCoder is implemented by errors that pick their own exit code.
type ExitCoder interface {
	ExitCode() int
}

// usageHinter is implemented by errors that can point at help output.
type usageHinter interface {
	Usage() string
}

var errorPrefix = pterm.NewStyle(pterm.FgRed, pterm.Bold)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Kind == api.Auth {
			return ExitNoPerm
		}
		return ExitFailure
	}

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}

	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitSoftware
}

// ErrorReport is the rendered form of an error.
type ErrorReport struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Hint    string            `json:"hint,omitempty"`
	Code    int               `json:"exit_code"`

	fieldOrder []string
}

// Describe classifies err for display.
func Describe(err error) *ErrorReport {
	r := &ErrorReport{Kind: "error", Message: err.Error(), Code: ExitCode(err)}

	var apiErr *api.Error
	var cfgErr *config.Error
	switch {
	case errors.As(err, &apiErr):
		r.Kind = apiErr.Kind.String()
		r.Status = apiErr.Status
		r.Fields = apiErr.Fields
		r.fieldOrder = apiErr.FieldNames()
	case errors.As(err, &cfgErr):
		r.Kind = "config: " + cfgErr.Kind.String()
	case r.Code == ExitInterrupted:
		r.Kind = "interrupted"
		r.Message = "interrupted"
	case r.Code == ExitUsage:
		r.Kind = "usage"
	case r.Code == ExitSoftware:
		r.Kind = "internal"
	}

	var hinter usageHinter
	if errors.As(err, &hinter) {
		r.Hint = hinter.Usage()
	}
	return r
}

// JSON returns the report as a JSON object.
func (r *ErrorReport) JSON() (json.RawMessage, error) {
	return json.Marshal(r)
}
