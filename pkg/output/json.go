package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// JSONFormatter emits the decoded response structure unmodified.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes objects and lists as indented JSON. Keys keep the order the
// API sent them in. Plain messages become {"message": ...}.
func (f *JSONFormatter) Format(w io.Writer, result *Result, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}

	raw, err := resultJSON(result)
	if err != nil {
		return err
	}
	if raw == nil {
		return writeText(w, result.Text)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", strings.Repeat(" ", config.Indent)); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// resultJSON returns the JSON document for result, or nil when the result
// is text that is printed as-is.
func resultJSON(result *Result) ([]byte, error) {
	switch result.Kind {
	case KindObject:
		if len(bytes.TrimSpace(result.Item)) == 0 {
			return []byte("null"), nil
		}
		return result.Item, nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range result.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(item)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindText:
		if result.Raw || result.Text == "" {
			return nil, nil
		}
		data, err := json.Marshal(map[string]string{"message": result.Text})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported result kind %d", result.Kind)
	}
}
