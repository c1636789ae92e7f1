package domain

// CredentialSelector picks one credential out of a pair, "" when it has none
type CredentialSelector struct {
	Name   string
	Select func(*TokenPair) string
}

// CredentialPrecedence is the order in which credentials are tried for
// outbound calls and for decoding. The identity token wins over the access token.
var CredentialPrecedence = []CredentialSelector{
	{Name: "id_token", Select: func(t *TokenPair) string { return t.IDToken }},
	{Name: "access_token", Select: func(t *TokenPair) string { return t.AccessToken }},
}

// Credential returns the first non-empty credential in CredentialPrecedence
// together with the name of the field it came from.
func (t *TokenPair) Credential() (value, field string) {
	if t == nil {
		return "", ""
	}
	for _, sel := range CredentialPrecedence {
		if v := sel.Select(t); v != "" {
			return v, sel.Name
		}
	}
	return "", ""
}
