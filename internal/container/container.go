package container

import (
	"context"
	"fmt"

	"fe-v2/internal/apiclient"
	"fe-v2/internal/config"
	"fe-v2/internal/service"
	"fe-v2/internal/service/callback"
	"fe-v2/internal/service/login"
	"fe-v2/internal/service/oauthstate"
	"fe-v2/internal/service/session"
	"fe-v2/internal/storage"
	"fe-v2/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logger.Logger
	Storage  storage.Backend
	API      *apiclient.Client
	Services *service.Services

	session *session.Store
}

// New creates a new dependency injection container with the storage backend
// selected by the configuration
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	backend, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c, err := NewWithStorage(cfg, logger, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return c, nil
}

// NewWithStorage creates a container around an already opened backend
func NewWithStorage(cfg *config.Config, logger *logger.Logger, backend storage.Backend) (*Container, error) {
	// the API client reads its credential from the store, which needs the
	// client for profile resolution
	var store *session.Store
	api, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, apiclient.CredentialFunc(func() string {
		return store.Credential()
	}), logger)
	if err != nil {
		return nil, err
	}
	store = session.NewStore(backend, session.DefaultSources(api), logger)

	guard := oauthstate.NewGuard(backend, logger)
	initiator := login.NewInitiator(login.Config{
		AuthURL:     cfg.AuthURL,
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
		Scopes:      cfg.ScopeList(),
		Language:    cfg.Language,
	}, guard, logger)
	callbacks := callback.NewHandler(callback.Config{
		RedirectURI: cfg.RedirectURI,
		LoginPath:   cfg.LoginPath,
		LandingPath: cfg.LandingPath,
	}, guard, api, store, logger)

	logger.WithField("storage_backend", backend.Name()).Info("Container initialized")

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Storage: backend,
		API:     api,
		Services: &service.Services{
			Session:  store,
			Login:    initiator,
			Callback: callbacks,
		},
		session: store,
	}, nil
}

// GetSessionService returns the session store
func (c *Container) GetSessionService() service.SessionService {
	return c.Services.Session
}

// GetLoginService returns the login initiator
func (c *Container) GetLoginService() service.LoginService {
	return c.Services.Login
}

// GetCallbackService returns the callback handler
func (c *Container) GetCallbackService() service.CallbackService {
	return c.Services.Callback
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetStorage returns the storage backend
func (c *Container) GetStorage() storage.Backend {
	return c.Storage
}

// Close stops in-flight profile resolution and closes the storage backend
func (c *Container) Close() error {
	c.session.Close()
	return c.Storage.Close()
}
