package apiclient

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// CredentialSource yields the bearer credential for outbound calls, "" for none
type CredentialSource interface {
	Credential() string
}

// CredentialFunc adapts a function to CredentialSource
type CredentialFunc func() string

func (f CredentialFunc) Credential() string { return f() }

type contextKey string

const credentialContextKey contextKey = "pinned_credential"

// WithCredential pins a credential to every request made with ctx, taking
// precedence over the Authenticator's source. Profile resolution uses it so a
// lookup always carries the credential of the pair it is resolving.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialContextKey, credential)
}

func pinnedCredential(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(credentialContextKey).(string)
	return v, ok
}

// Authenticator is an http.RoundTripper that attaches the bearer credential.
// It never refreshes or blocks; without a credential the request goes out
// unauthenticated and the server decides.
type Authenticator struct {
	Source CredentialSource
	Base   http.RoundTripper
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	credential, ok := pinnedCredential(req.Context())
	if !ok && a.Source != nil {
		credential = a.Source.Credential()
	}
	if credential == "" {
		return a.base().RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	token := &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}
	token.SetAuthHeader(authed)
	return a.base().RoundTrip(authed)
}

func (a *Authenticator) base() http.RoundTripper {
	if a.Base != nil {
		return a.Base
	}
	return http.DefaultTransport
}
