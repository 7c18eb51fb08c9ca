package pica

import "time"

// Connection is a credential binding to a platform.
type Connection struct {
	ID           string    `json:"_id,omitempty"`
	Key          string    `json:"key"`
	Platform     string    `json:"platform"`
	Active       bool      `json:"active"`
	Name         string    `json:"name,omitempty"`
	Environment  string    `json:"environment,omitempty"`
	Identity     string    `json:"identity,omitempty"`
	IdentityType string    `json:"identityType,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// ConnectionDefinition describes a platform integration independent of any
// credential.
type ConnectionDefinition struct {
	ID          string   `json:"_id,omitempty"`
	Name        string   `json:"name"`
	Key         string   `json:"key,omitempty"`
	Platform    string   `json:"platform"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Image       string   `json:"image,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AuthMethod  any      `json:"authMethod,omitempty"`
	Active      bool     `json:"active,omitempty"`
}

// Action is one invokable remote operation from the knowledge catalog.
type Action struct {
	ID                 string   `json:"_id"`
	Title              string   `json:"title"`
	ActionName         string   `json:"actionName,omitempty"`
	ConnectionPlatform string   `json:"connectionPlatform"`
	Method             string   `json:"method"`
	Path               string   `json:"path"`
	BaseURL            string   `json:"baseUrl,omitempty"`
	Knowledge          string   `json:"knowledge,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

// Page is one page of a paginated Pica list response.
type Page[T any] struct {
	Rows  []T `json:"rows"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// IdentityType scopes connections to a tenant kind.
type IdentityType string

// Supported identity types.
const (
	IdentityUser         IdentityType = "user"
	IdentityTeam         IdentityType = "team"
	IdentityOrganization IdentityType = "organization"
	IdentityProject      IdentityType = "project"
)

// validIdentityTypes is the set of accepted identity types.
var validIdentityTypes = map[IdentityType]bool{
	IdentityUser:         true,
	IdentityTeam:         true,
	IdentityOrganization: true,
	IdentityProject:      true,
}

// ValidIdentityType reports whether s is empty or a supported identity type.
func ValidIdentityType(s string) bool {
	return s == "" || validIdentityTypes[IdentityType(s)]
}

// ConnectionQuery narrows a connection listing.
type ConnectionQuery struct {
	Platform     string
	Key          string
	Identity     string
	IdentityType string
}

// ActionQuery selects actions by platform or by exact identifier.
type ActionQuery struct {
	Platform string
	ID       string
}
