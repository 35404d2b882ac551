package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"
)

// TableFormatter formats output as a table using pterm.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format renders lists as one row per item and single objects as
// FIELD/VALUE rows.
func (f *TableFormatter) Format(w io.Writer, result *Result, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}

	var tableData [][]string
	var err error

	switch result.Kind {
	case KindText:
		return writeText(w, result.Text)
	case KindList:
		if len(result.Items) == 0 {
			return writeText(w, emptyNotice(result.Resource))
		}
		tableData, err = f.formatList(result, config)
	case KindObject:
		tableData, err = f.formatObject(result, config)
	default:
		return fmt.Errorf("unsupported result kind %d", result.Kind)
	}
	if err != nil {
		return err
	}
	if tableData == nil {
		// Scalar payload: nothing tabular to show.
		return writeText(w, strings.TrimSpace(string(result.Item)))
	}

	table := pterm.DefaultTable.WithHasHeader(config.ShowHeaders)
	if config.Colors {
		table = table.WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold))
	} else {
		table = table.WithHeaderStyle(pterm.NewStyle()).WithStyle(pterm.NewStyle()).WithSeparatorStyle(pterm.NewStyle())
	}

	rendered, err := table.WithData(tableData).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if !config.Colors {
		rendered = pterm.RemoveColorFromString(rendered)
	}
	return writeText(w, rendered)
}

func (f *TableFormatter) formatList(result *Result, config *FormatConfig) ([][]string, error) {
	items := make([]map[string]any, 0, len(result.Items))
	for i, raw := range result.Items {
		m, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, m)
	}

	columns := result.Columns
	if len(columns) == 0 {
		columns = autoDetectColumns(items[0])
	}

	tableData := make([][]string, 0, len(items)+1)
	if config.ShowHeaders {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = col.Header
		}
		tableData = append(tableData, headers)
	}

	for _, item := range items {
		row := make([]string, len(columns))
		for j, col := range columns {
			value, _ := lookup(item, col.Fields)
			row[j] = truncate(formatValue(value), cellWidth(col, config))
		}
		tableData = append(tableData, row)
	}
	return tableData, nil
}

// formatObject returns nil data when the payload is not a JSON object.
func (f *TableFormatter) formatObject(result *Result, config *FormatConfig) ([][]string, error) {
	raw := bytes.TrimSpace(result.Item)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	item, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	tableData := [][]string{}
	if config.ShowHeaders {
		tableData = append(tableData, []string{"FIELD", "VALUE"})
	}

	if len(result.Columns) > 0 {
		for _, col := range result.Columns {
			value, ok := lookup(item, col.Fields)
			if !ok {
				continue
			}
			tableData = append(tableData, []string{col.Header, truncate(formatValue(value), cellWidth(col, config))})
		}
		return tableData, nil
	}

	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tableData = append(tableData, []string{k, truncate(formatValue(item[k]), config.MaxWidth)})
	}
	return tableData, nil
}

// autoDetectColumns uses the sorted keys of the first item.
func autoDetectColumns(item map[string]any) []Column {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]Column, len(keys))
	for i, k := range keys {
		columns[i] = Col(strings.ToUpper(k), k)
	}
	return columns
}

func lookup(item map[string]any, fields []string) (any, bool) {
	for _, field := range fields {
		if v, ok := item[field]; ok && v != nil {
			return v, true
		}
	}
	for _, field := range fields {
		if v, ok := item[field]; ok {
			return v, true
		}
	}
	return nil, false
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// formatValue renders a decoded JSON value for a table cell.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			switch elem.(type) {
			case map[string]any, []any:
				data, _ := json.Marshal(v)
				return string(data)
			}
			parts = append(parts, formatValue(elem))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func cellWidth(col Column, config *FormatConfig) int {
	if col.Width > 0 {
		return col.Width
	}
	return config.MaxWidth
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func emptyNotice(resource string) string {
	if resource == "" {
		resource = "results"
	}
	return fmt.Sprintf("No %s found.", resource)
}

func writeText(w io.Writer, text string) error {
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
