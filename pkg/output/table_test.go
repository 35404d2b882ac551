package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderTable(t *testing.T, result *Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter().Format(&buf, result, NewFormatConfig().WithColors(false)))
	return buf.String()
}

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestTableFormatterName(t *testing.T) {
	assert.Equal(t, "table", NewTableFormatter().Name())
}

func TestTableList(t *testing.T) {
	out := renderTable(t, List("extensions", raws(
		`{"extensionid":"3f1c","name":"Foo","is_paid":true}`,
		`{"id":"ext_2","name":"Bar","is_paid":false}`,
	), Col("ID", "extensionid", "id"), Col("NAME", "name"), Col("PAID", "is_paid")))

	lineWith := func(s string) string {
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, s) {
				return line
			}
		}
		t.Fatalf("no line contains %q in:\n%s", s, out)
		return ""
	}
	assert.Contains(t, lineWith("NAME"), "ID")
	assert.Contains(t, lineWith("3f1c"), "yes")
	assert.Contains(t, lineWith("ext_2"), "Bar")
	assert.Less(t, strings.Index(out, "3f1c"), strings.Index(out, "ext_2"))
	assert.NotContains(t, out, "\x1b[")
}

func TestTableListAutoColumns(t *testing.T) {
	out := renderTable(t, List("groups", raws(`{"name":"vip","groupe_id":"g1"}`)))
	assert.Contains(t, out, "GROUPE_ID")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "g1")
}

func TestTableEmptyList(t *testing.T) {
	assert.Equal(t, "No extensions found.\n", renderTable(t, List("extensions", nil)))
	assert.Equal(t, "No results found.\n", renderTable(t, List("", nil)))
}

func TestTableObject(t *testing.T) {
	out := renderTable(t, Object("extension", json.RawMessage(`{"id":"ext_1","name":"Foo"}`),
		Col("ID", "extensionid", "id"), Col("NAME", "name"), Col("WEBSITE", "website_url")))

	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "ext_1")
	assert.Contains(t, out, "Foo")
	assert.NotContains(t, out, "WEBSITE", "absent fields are skipped")
}

func TestTableObjectAllFields(t *testing.T) {
	out := renderTable(t, Object("account", json.RawMessage(`{"sid":"AC1","balance":120}`)))
	assert.Contains(t, out, "balance")
	assert.Contains(t, out, "120")
	assert.Less(t, strings.Index(out, "balance"), strings.Index(out, "sid"))
}

func TestTableScalarObject(t *testing.T) {
	assert.Equal(t, "\"ok\"\n", renderTable(t, Object("x", json.RawMessage(`"ok"`))))
}

func TestTableMessage(t *testing.T) {
	assert.Equal(t, "Extension deleted.\n", renderTable(t, Message("Extension deleted.")))
	assert.Empty(t, renderTable(t, Message("")))
}

func TestTableBadItem(t *testing.T) {
	err := NewTableFormatter().Format(&bytes.Buffer{}, List("x", raws(`[1,2]`)), nil)
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"null", `null`, ""},
		{"string", `"hi"`, "hi"},
		{"integer", `42`, "42"},
		{"big number keeps digits", `12345678901234567890`, "12345678901234567890"},
		{"bool", `false`, "no"},
		{"scalar list", `["a","b"]`, "a, b"},
		{"object list", `[{"contact":"+224"}]`, `[{"contact":"+224"}]`},
		{"object", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := decodeObject(json.RawMessage(`{"v":` + tt.in + `}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatValue(item["v"]))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "unbounded", truncate("unbounded", 0))
}

func TestColumnWidthOverride(t *testing.T) {
	col := Column{Header: "DESC", Fields: []string{"description"}, Width: 8}
	out := renderTable(t, List("x", raws(`{"description":"a very long description"}`), col))
	assert.Contains(t, out, "a ver...")
}
