package nimba

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbasms/nimbasms-cli/pkg/api"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestDefaultContractLoads(t *testing.T) {
	c, err := DefaultContract()
	require.NoError(t, err)
	assert.Contains(t, c.SchemaNames(), "Extension")

	again, err := DefaultContract()
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestEveryResourceHasSchema(t *testing.T) {
	c, err := DefaultContract()
	require.NoError(t, err)

	for _, res := range Resources() {
		_, ok := c.Schema(res.Schema)
		assert.True(t, ok, "resource %s references missing schema %q", res.Name, res.Schema)
	}
}

func TestValidateResponse(t *testing.T) {
	c, err := DefaultContract()
	require.NoError(t, err)

	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{"minimal extension", "Extension", `{"id":"ext_1","name":"Foo"}`, false},
		{"full extension", "Extension", `{"extensionid":"3f1c","name":"Foo","description":"d","base_api_url":"https://x","auth_type":"oauth2","is_paid":true,"logo":null,"created_at":"2024-01-01T00:00:00Z"}`, false},
		{"unknown fields allowed", "Extension", `{"id":"ext_1","category":"crm"}`, false},
		{"bad auth type", "Extension", `{"auth_type":"basic"}`, true},
		{"wrong type", "Extension", `{"name":42}`, true},
		{"not an object", "Extension", `"ext_1"`, true},
		{"account", "Account", `{"sid":"AC1","balance":120,"webhook_url":null}`, false},
		{"fractional balance", "Account", `{"balance":1.5}`, true},
		{"message with deliveries", "Message", `{"messageid":"m1","status":"sent","sent_at":1700000000,"numbers":[{"contact":"+224","status":"received"}]}`, false},
		{"bad delivery", "Message", `{"numbers":[{"contact":224}]}`, true},
		{"contact groups", "Contact", `{"contact_id":"c1","numero":"+224622","created_at":1,"groups":["vip"]}`, false},
		{"plan period", "PricingPlan", `{"name":"Pro","price":"9.99","billing_period":"weekly"}`, true},
		{"verification check", "VerificationCheck", `{"code":1234,"status":"approved"}`, false},
		{"sender status", "SenderName", `{"status":"maybe"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateResponse(tt.schema, decodeJSON(t, tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	c, err := DefaultContract()
	require.NoError(t, err)
	err = c.ValidateResponse("Nope", map[string]any{})
	assert.ErrorContains(t, err, "unknown schema")
	assert.ErrorContains(t, err, "Extension")
}

func TestLoadContractRejectsBadDocuments(t *testing.T) {
	tests := map[string]string{
		"not yaml":   "::::",
		"no schemas": "openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadContract(context.Background(), []byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestContractCoversResources(t *testing.T) {
	c, err := DefaultContract()
	require.NoError(t, err)
	require.NoError(t, c.covers(Resources()))

	err = c.covers([]api.Resource{{Name: "ghosts", Schema: "Ghost"}})
	assert.ErrorContains(t, err, `ghosts: no schema "Ghost"`)
}

func TestExtensionRoundTrip(t *testing.T) {
	in := Extension{
		ExtensionID:  "3f1c",
		Name:         "Foo",
		BaseAPIURL:   "https://x",
		AuthType:     AuthOAuth2,
		IsPaid:       true,
		OAuth2Config: &OAuth2Config{ClientID: "id", RequiredScopes: []string{"read"}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	c, err := DefaultContract()
	require.NoError(t, err)
	require.NoError(t, c.ValidateResponse("Extension", decodeJSON(t, string(data))))

	var out Extension
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestAccountsResource(t *testing.T) {
	path, err := Accounts.CollectionPath(nil)
	require.NoError(t, err)
	assert.Equal(t, "/accounts", path)
	assert.Contains(t, Resources(), Accounts)
}

func TestExtensionParams(t *testing.T) {
	path, err := Actions.ItemPath(ExtensionParams("ext_1"), "act_1")
	require.NoError(t, err)
	assert.Equal(t, "/extensions/ext_1/actions/act_1", path)
}
