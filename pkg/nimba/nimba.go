// Package nimba describes the Nimba SMS REST API: where each resource
// lives, the shapes it returns and the Go types they decode into.
package nimba

import "github.com/nimbasms/nimbasms-cli/pkg/api"

// Path parameters used by nested resources.
const (
	ParamExtensionID = "extension_id"
)

// Resource descriptors. Path templates are relative to the API base URL.
var (
	Accounts = api.Resource{Name: "account", Path: "/accounts", Schema: "Account"}

	Extensions       = api.Resource{Name: "extensions", Path: "/extensions", Schema: "Extension", Upload: "logo"}
	ExtensionPublish = api.Resource{Name: "extensions", Path: "/extensions", Schema: "PublishStatus"}

	Actions       = api.Resource{Name: "actions", Path: "/extensions/{extension_id}/actions", Schema: "ExtensionAction"}
	ActionPublish = api.Resource{Name: "actions", Path: "/extensions/{extension_id}/actions", Schema: "PublishStatus"}

	Plans = api.Resource{Name: "plans", Path: "/extensions/{extension_id}/plans", Schema: "PricingPlan"}

	Messages    = api.Resource{Name: "messages", Path: "/messages", Schema: "Message"}
	MessageSend = api.Resource{Name: "messages", Path: "/messages", Schema: "MessageReceipt"}

	Contacts    = api.Resource{Name: "contacts", Path: "/contacts", Schema: "Contact"}
	Groups      = api.Resource{Name: "groups", Path: "/groups", Schema: "Group"}
	SenderNames = api.Resource{Name: "sender names", Path: "/sendernames", Schema: "SenderName"}

	Verifications      = api.Resource{Name: "verifications", Path: "/verifications", Schema: "Verification"}
	VerificationChecks = api.Resource{Name: "verifications", Path: "/verifications", Schema: "VerificationCheck"}
)

// Resources lists every descriptor, for contract checks.
func Resources() []api.Resource {
	return []api.Resource{
		Accounts, Extensions, ExtensionPublish, Actions, ActionPublish, Plans,
		Messages, MessageSend, Contacts, Groups, SenderNames,
		Verifications, VerificationChecks,
	}
}

// ExtensionParams returns the path parameters for resources nested under an extension.
func ExtensionParams(extensionID string) api.Params {
	return api.Params{ParamExtensionID: extensionID}
}
