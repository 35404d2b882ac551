// Package output renders command results and errors and maps failures to
// process exit codes.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Manager holds the registered formatters.
type Manager struct {
	formatters    map[string]Formatter
	defaultFormat string
	config        *FormatConfig
}

// NewManager creates a new output manager with the table, json and yaml formatters.
func NewManager() *Manager {
	m := &Manager{
		formatters:    make(map[string]Formatter),
		defaultFormat: "table",
		config:        NewFormatConfig(),
	}

	m.RegisterFormatter(NewTableFormatter())
	m.RegisterFormatter(NewJSONFormatter())
	m.RegisterFormatter(NewYAMLFormatter())

	return m
}

// RegisterFormatter registers a new formatter.
func (m *Manager) RegisterFormatter(formatter Formatter) {
	m.formatters[formatter.Name()] = formatter
}

// GetFormatter returns a formatter by name.
func (m *Manager) GetFormatter(name string) (Formatter, error) {
	formatter, ok := m.formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("formatter '%s' not found", name)
	}
	return formatter, nil
}

// SetConfig sets the format configuration.
func (m *Manager) SetConfig(config *FormatConfig) {
	m.config = config
}

// Render writes result in format. An empty format means table. Help text
// is written as-is regardless of format.
func (m *Manager) Render(w io.Writer, result *Result, format string) error {
	if result == nil {
		return nil
	}
	if result.Raw {
		return writeText(w, result.Text)
	}
	if format == "" {
		format = m.defaultFormat
	}

	formatter, err := m.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(w, result, m.config)
}

// RenderError writes err in format and returns the exit code for it.
func (m *Manager) RenderError(w io.Writer, err error, format string) int {
	code := ExitCode(err)
	if err == nil {
		return code
	}
	report := Describe(err)

	switch strings.ToLower(format) {
	case "json", "yaml":
		formatter, fmtErr := m.GetFormatter(format)
		if fmtErr == nil {
			if raw, mErr := report.JSON(); mErr == nil {
				if fErr := formatter.Format(w, Object("error", raw), m.config); fErr == nil {
					return code
				}
			}
		}
	}

	m.writeErrorText(w, report)
	return code
}

func (m *Manager) writeErrorText(w io.Writer, r *ErrorReport) {
	prefix := "Error:"
	if m.config.Colors {
		prefix = errorPrefix.Sprint(prefix)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", prefix, r.Message)
	for _, field := range r.fieldOrder {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", field, r.Fields[field])
	}
	if r.Hint != "" {
		_, _ = fmt.Fprintln(w, r.Hint)
	}
}
