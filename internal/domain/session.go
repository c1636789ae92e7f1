package domain

// TokenPair is the credential set returned by the code exchange.
// It is persisted and replaced as a whole, never field by field.
type TokenPair struct {
	AccessToken string `json:"access_token,omitempty"`
	IDToken     string `json:"id_token,omitempty"`
}

// IsAuthenticated reports whether the pair carries any non-empty credential.
// A nil pair is not authenticated.
func (t *TokenPair) IsAuthenticated() bool {
	return t != nil && (t.AccessToken != "" || t.IDToken != "")
}

// Clone returns a copy that callers may keep without aliasing the store's pair
func (t *TokenPair) Clone() *TokenPair {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// SessionSnapshot is a consistent read of the session state at one instant
type SessionSnapshot struct {
	Tokens          *TokenPair   `json:"-"`
	User            *UserProfile `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	AuthReady       bool         `json:"auth_ready"`
	Generation      uint64       `json:"-"`
}
