package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Format converts the JSON document of result to block-style YAML. JSON is
// valid YAML, so the document is parsed into a node tree, which keeps key
// order, and re-encoded without the flow style.
func (f *YAMLFormatter) Format(w io.Writer, result *Result, config *FormatConfig) error {
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

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to convert JSON to YAML: %w", err)
	}
	blockStyle(&doc)

	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	encoder.SetIndent(config.Indent)

	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// blockStyle clears flow and quoting styles; the encoder re-quotes strings
// that would otherwise read back as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
