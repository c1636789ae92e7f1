package login

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"fe-v2/pkg/logger"
)

// StateIssuer issues the anti-forgery state for one login attempt
type StateIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// Config describes the identity provider's authorization endpoint
type Config struct {
	AuthURL     string
	ClientID    string
	RedirectURI string
	Scopes      []string
	// Language is sent as an extra "language" parameter when set
	Language string
}

// Initiator starts the authorization-code flow
type Initiator struct {
	oauth    *oauth2.Config
	language string
	states   StateIssuer
	logger   *logger.Logger
}

// NewInitiator creates a login initiator
func NewInitiator(cfg Config, states StateIssuer, log *logger.Logger) *Initiator {
	return &Initiator{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL: cfg.AuthURL,
			},
		},
		language: cfg.Language,
		states:   states,
		logger:   log.Component("login"),
	}
}

// AuthorizationURL issues a fresh state token and returns the provider URL
// the user agent must navigate to.
func (i *Initiator) AuthorizationURL(ctx context.Context) (string, error) {
	state, err := i.states.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}

	var opts []oauth2.AuthCodeOption
	if i.language != "" {
		opts = append(opts, oauth2.SetAuthURLParam("language", i.language))
	}

	i.logger.WithField("client_id", i.oauth.ClientID).Info("Starting login")
	return i.oauth.AuthCodeURL(state, opts...), nil
}
