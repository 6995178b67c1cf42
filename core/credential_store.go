package core

// AuthConfig describes a credential requirement staged by a tool on event
// actions. The runner surfaces requested configs to the caller; tools resolve
// fulfilled credentials through a CredentialStore.
type AuthConfig struct {
	Scheme   string         `json:"scheme"`
	Audience string         `json:"audience,omitempty"`
	Scopes   []string       `json:"scopes,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Credential is an opaque secret resolved for an auth config key.
type Credential struct {
	Key    string
	Secret string
	Extra  map[string]any
}

// CredentialStore persists credentials keyed by auth config key. Load returns
// a nil credential without error when the key is unknown, so tools can fall
// back to requesting the config on their event actions.
type CredentialStore interface {
	Load(key string) (*Credential, error)
	Save(cred *Credential) error
}
