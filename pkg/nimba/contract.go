package nimba

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/nimbasms/nimbasms-cli/pkg/api"
)

//go:embed contract.yaml
var contractData []byte

// Contract holds the response schemas the client checks every decoded body against.
type Contract struct {
	doc *openapi3.T
}

var (
	defaultOnce     sync.Once
	defaultContract *Contract
	defaultErr      error
)

// DefaultContract returns the contract built into the binary.
func DefaultContract() (*Contract, error) {
	defaultOnce.Do(func() {
		defaultContract, defaultErr = LoadContract(context.Background(), contractData)
		if defaultErr == nil {
			defaultErr = defaultContract.covers(Resources())
		}
	})
	return defaultContract, defaultErr
}

// LoadContract parses and validates an OpenAPI document holding component schemas.
func LoadContract(ctx context.Context, data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load response contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("response contract validation failed: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, fmt.Errorf("response contract declares no schemas")
	}

	return &Contract{doc: doc}, nil
}

// covers checks that every resource names a schema of the contract.
func (c *Contract) covers(resources []api.Resource) error {
	var missing []string
	for _, res := range resources {
		if res.Schema == "" {
			continue
		}
		if _, ok := c.Schema(res.Schema); !ok {
			missing = append(missing, fmt.Sprintf("%s: no schema %q", res.Name, res.Schema))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("response contract is incomplete: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Schema returns the named component schema.
func (c *Contract) Schema(name string) (*openapi3.Schema, bool) {
	ref, ok := c.doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, false
	}
	return ref.Value, true
}

// SchemaNames lists every schema in the contract, sorted.
func (c *Contract) SchemaNames() []string {
	names := make([]string, 0, len(c.doc.Components.Schemas))
	for name := range c.doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateResponse checks a decoded JSON value against the named schema.
func (c *Contract) ValidateResponse(schema string, value any) error {
	s, ok := c.Schema(schema)
	if !ok {
		return fmt.Errorf("unknown schema %q (known: %s)", schema, strings.Join(c.SchemaNames(), ", "))
	}
	if err := s.VisitJSON(value); err != nil {
		return fmt.Errorf("%s: %w", schema, err)
	}
	return nil
}
