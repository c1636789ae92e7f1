package session

import (
	"context"

	"fe-v2/internal/domain"
)

// ProfileSource is one step of profile resolution
type ProfileSource struct {
	Name  string
	Fetch func(ctx context.Context) (*domain.UserProfile, error)
}

// ProfileAPI is the part of the API client resolution depends on
type ProfileAPI interface {
	WhoAmI(ctx context.Context) (*domain.UserProfile, error)
	Me(ctx context.Context) (*domain.UserProfile, error)
}

// DefaultSources tries the primary whoami endpoint, then the legacy /me
func DefaultSources(api ProfileAPI) []ProfileSource {
	return []ProfileSource{
		{Name: "whoami", Fetch: api.WhoAmI},
		{Name: "me", Fetch: api.Me},
	}
}
