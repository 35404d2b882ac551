package output

import (
	"encoding/json"
	"io"
)

// Formatter renders a Result in one output format.
type Formatter interface {
	// Format writes result to w.
	Format(w io.Writer, result *Result, config *FormatConfig) error

	// Name returns the format name used by --format (e.g. "json", "yaml", "table").
	Name() string
}

// FormatConfig contains configuration options for formatting output.
type FormatConfig struct {
	// Colors enables colored output
	Colors bool

	// ShowHeaders controls header display (for tables)
	ShowHeaders bool

	// MaxWidth truncates table cells; zero disables truncation
	MaxWidth int

	// Indent is the JSON and YAML indentation width
	Indent int
}

// NewFormatConfig creates a new FormatConfig with sensible defaults.
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{
		Colors:      true,
		ShowHeaders: true,
		MaxWidth:    60,
		Indent:      2,
	}
}

// WithColors sets the colors option.
func (c *FormatConfig) WithColors(colors bool) *FormatConfig {
	c.Colors = colors
	return c
}

// ResultKind tells a formatter which part of a Result is populated.
type ResultKind int

const (
	// KindText is a plain message (or help text when Raw is set).
	KindText ResultKind = iota
	// KindObject is a single decoded resource.
	KindObject
	// KindList is a sequence of decoded resources.
	KindList
)

// Column is one table column. The first of Fields present in an item
// supplies the cell, so one column can cover "extensionid" and "id".
type Column struct {
	Header string
	Fields []string
	// Width truncates the cell when positive, overriding FormatConfig.MaxWidth.
	Width int
}

// Col builds a Column.
func Col(header string, fields ...string) Column {
	return Column{Header: header, Fields: fields}
}

// Result is what a command hands to the presentation layer. Items keep the
// raw JSON of the response so json output is emitted unmodified.
type Result struct {
	Kind ResultKind

	// Resource names the listed resource in notices ("No extensions found.").
	Resource string
	Columns  []Column

	Item  json.RawMessage
	Items []json.RawMessage

	Text string
	// Raw text is printed as-is in every format.
	Raw bool
}

// Object wraps a single resource.
func Object(resource string, raw json.RawMessage, columns ...Column) *Result {
	return &Result{Kind: KindObject, Resource: resource, Item: raw, Columns: columns}
}

// List wraps a sequence of resources. A nil items slice is an empty list.
func List(resource string, items []json.RawMessage, columns ...Column) *Result {
	if items == nil {
		items = []json.RawMessage{}
	}
	return &Result{Kind: KindList, Resource: resource, Items: items, Columns: columns}
}

// Message wraps a short confirmation such as "Extension deleted.".
func Message(text string) *Result {
	return &Result{Kind: KindText, Text: text}
}

// Help wraps generated help text.
func Help(text string) *Result {
	return &Result{Kind: KindText, Text: text, Raw: true}
}
