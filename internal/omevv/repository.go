package omevv

import (
	"context"
	"net/http"
)

// ListRepositoryProfiles returns all repository profiles registered with
// the controller.
func (c *Client) ListRepositoryProfiles(ctx context.Context) ([]RepositoryProfile, error) {
	var profiles []RepositoryProfile
	if err := c.doJSON(ctx, http.MethodGet, c.path(opListRepositoryProfiles), nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetRepositoryProfile returns one repository profile by id.
func (c *Client) GetRepositoryProfile(ctx context.Context, id int64) (*RepositoryProfile, error) {
	var profile RepositoryProfile
	if err := c.doJSON(ctx, http.MethodGet, c.path(opRepositoryProfileByID, id), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindRepositoryProfile returns the repository profile with the given name,
// or nil when no profile matches. Absence is a valid outcome, not an error.
func (c *Client) FindRepositoryProfile(ctx context.Context, name string) (*RepositoryProfile, error) {
	profiles, err := c.ListRepositoryProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], nil
		}
	}
	return nil, nil
}

// CreateRepositoryProfile registers a new repository profile and returns
// its id.
func (c *Client) CreateRepositoryProfile(ctx context.Context, request CreateRepositoryProfileRequest) (int64, error) {
	var id int64
	if err := c.doJSON(ctx, http.MethodPost, c.path(opListRepositoryProfiles), request, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ModifyRepositoryProfile replaces the mutable fields of a repository
// profile.
func (c *Client) ModifyRepositoryProfile(ctx context.Context, id int64, request ModifyRepositoryProfileRequest) error {
	return c.doJSON(ctx, http.MethodPut, c.path(opRepositoryProfileByID, id), request, nil)
}

// DeleteRepositoryProfile removes a repository profile by id.
func (c *Client) DeleteRepositoryProfile(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, c.path(opRepositoryProfileByID, id), nil, nil)
}

// TestConnection validates that the controller can reach a repository share
// with the supplied credentials before the profile is registered.
func (c *Client) TestConnection(ctx context.Context, request TestConnectionRequest) error {
	return c.doJSON(ctx, http.MethodPost, c.path(opTestConnection), request, nil)
}
