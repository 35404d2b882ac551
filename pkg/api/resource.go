package api

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Resource describes one remote collection: where it lives and which
// response schema its items must satisfy.
type Resource struct {
	// Name is the plural resource name used in messages ("extensions").
	Name string
	// Path is the collection path template, e.g. "/extensions/{extension_id}/actions".
	Path string
	// Schema names the contract schema for a single item. Empty skips the check.
	Schema string
	// Upload is the item sub-path that accepts multipart uploads ("logo").
	Upload string
}

// Params holds values for the {placeholders} of a path template.
type Params map[string]string

var placeholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Placeholders returns the parameter names in the resource path, in order.
func (r Resource) Placeholders() []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(r.Path, -1) {
		names = append(names, m[1])
	}
	return names
}

// CollectionPath expands the path template.
func (r Resource) CollectionPath(params Params) (string, error) {
	var missing []string
	for _, name := range r.Placeholders() {
		if params[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%s: missing path parameter(s) %s", r.Name, strings.Join(missing, ", "))
	}
	return placeholder.ReplaceAllStringFunc(r.Path, func(m string) string {
		return url.PathEscape(params[m[1:len(m)-1]])
	}), nil
}

// ItemPath expands the template and appends the escaped item id.
func (r Resource) ItemPath(params Params, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%s: empty id", r.Name)
	}
	base, err := r.CollectionPath(params)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(id), nil
}
