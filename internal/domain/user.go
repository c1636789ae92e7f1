package domain

// UserProfile is the identity resolved from the profile endpoints.
// Email and Name are nil when the backend did not return them.
type UserProfile struct {
	Subject string  `json:"subject"`
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
}

// DisplayName returns the name when present, else the email, else the subject
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	if p.Email != nil && *p.Email != "" {
		return *p.Email
	}
	return p.Subject
}

// OptionalString returns nil for an empty string
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
