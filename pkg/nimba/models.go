package nimba

// AuthType is how an extension authenticates against its own API.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthOAuth2 AuthType = "oauth2"
)

// AuthTypes lists the accepted auth types.
var AuthTypes = []AuthType{AuthNone, AuthAPIKey, AuthOAuth2}

// Account is the authenticated service account.
type Account struct {
	SID        string `json:"sid,omitempty"`
	Balance    int    `json:"balance"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// OAuth2Config is sent when an extension uses oauth2 auth. The CLI does not
// interpret it.
type OAuth2Config struct {
	ClientID         string            `json:"client_id"`
	ClientSecret     string            `json:"client_secret"`
	AuthorizationURL string            `json:"authorization_url"`
	TokenURL         string            `json:"token_url"`
	ScopeSeparator   string            `json:"scope_separator"`
	RedirectURL      string            `json:"redirect_url"`
	AvailableScopes  map[string]string `json:"available_scopes,omitempty"`
	RequiredScopes   []string          `json:"required_scopes,omitempty"`
}

// Extension is a third-party integration published on the platform.
type Extension struct {
	ID               string        `json:"id,omitempty"`
	ExtensionID      string        `json:"extensionid,omitempty"`
	Name             string        `json:"name,omitempty"`
	Description      string        `json:"description,omitempty"`
	Logo             string        `json:"logo,omitempty"`
	BaseAPIURL       string        `json:"base_api_url,omitempty"`
	AuthType         AuthType      `json:"auth_type,omitempty"`
	IsPaid           bool          `json:"is_paid,omitempty"`
	IsApproved       bool          `json:"is_approved,omitempty"`
	IsPublished      bool          `json:"is_published,omitempty"`
	DocumentationURL string        `json:"documentation_url,omitempty"`
	WebsiteURL       string        `json:"website_url,omitempty"`
	OAuth2Config     *OAuth2Config `json:"oauth2_config,omitempty"`
	CreatedAt        string        `json:"created_at,omitempty"`
	UpdatedAt        string        `json:"updated_at,omitempty"`
	URL              string        `json:"url,omitempty"`
}

// ExtensionAction is an operation an extension exposes.
type ExtensionAction struct {
	ID             string         `json:"id,omitempty"`
	ActionID       string         `json:"actionid,omitempty"`
	Name           string         `json:"name,omitempty"`
	Method         string         `json:"method,omitempty"`
	Endpoint       string         `json:"endpoint,omitempty"`
	Description    string         `json:"description,omitempty"`
	RequiredParams map[string]any `json:"required_params,omitempty"`
	OptionalParams map[string]any `json:"optional_params,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

// PricingPlan is a paid tier of an extension. Price is a decimal string.
type PricingPlan struct {
	ID            string         `json:"id,omitempty"`
	PricingPlanID string         `json:"pricingplanid,omitempty"`
	Name          string         `json:"name,omitempty"`
	Price         string         `json:"price,omitempty"`
	BillingPeriod string         `json:"billing_period,omitempty"`
	Features      map[string]any `json:"features,omitempty"`
}

// BillingPeriods lists the accepted billing periods.
var BillingPeriods = []string{"monthly", "yearly"}

// HTTPMethods lists the methods an extension action may use.
var HTTPMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// PublishStatus is returned by publish calls.
type PublishStatus struct {
	IsPublished bool   `json:"is_published"`
	Status      string `json:"status,omitempty"`
}

// Delivery is the status of a message for one recipient.
type Delivery struct {
	ID      string `json:"id,omitempty"`
	Contact string `json:"contact,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Message is a sent SMS.
type Message struct {
	MessageID  string     `json:"messageid,omitempty"`
	SenderName string     `json:"sender_name,omitempty"`
	Message    string     `json:"message,omitempty"`
	Status     string     `json:"status,omitempty"`
	SentAt     int64      `json:"sent_at,omitempty"`
	Numbers    []Delivery `json:"numbers,omitempty"`
}

// MessageStatuses lists the values accepted by the status filter.
var MessageStatuses = []string{"pending", "sent", "failure", "not_available", "received", "tosend"}

// NewMessage is the payload of messages send.
type NewMessage struct {
	SenderName string   `json:"sender_name"`
	To         []string `json:"to"`
	Message    string   `json:"message"`
}

// MessageReceipt acknowledges a sent message.
type MessageReceipt struct {
	MessageID string `json:"messageid,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Contact is an address book entry.
type Contact struct {
	ContactID string   `json:"contact_id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Numero    string   `json:"numero,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

// Group is a named set of contacts.
type Group struct {
	GroupID      string `json:"groupe_id,omitempty"`
	Name         string `json:"name,omitempty"`
	AddedAt      int64  `json:"added_at,omitempty"`
	TotalContact int    `json:"total_contact"`
}

// SenderName is a registered sender id.
type SenderName struct {
	SenderNameID string `json:"sendername_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Status       string `json:"status,omitempty"`
	AddedAt      int64  `json:"added_at,omitempty"`
}

// Verification is a one-time code request.
type Verification struct {
	VerificationID string `json:"verificationid,omitempty"`
	To             string `json:"to,omitempty"`
	Message        string `json:"message,omitempty"`
	SenderName     string `json:"sender_name,omitempty"`
	ExpiryTime     int    `json:"expiry_time,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
	Code           string `json:"code,omitempty"`
	CodeLength     int    `json:"code_length,omitempty"`
	URL            string `json:"url,omitempty"`
}

// VerificationCheck submits a code and reports the verification status.
type VerificationCheck struct {
	Code   int    `json:"code"`
	Status string `json:"status,omitempty"`
}
