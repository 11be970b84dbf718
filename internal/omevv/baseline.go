package omevv

import (
	"context"
	"net/http"
)

// ListClusters returns all clusters in the client's vCenter scope.
func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	var clusters []Cluster
	if err := c.doJSON(ctx, http.MethodGet, c.path(opListClusters, c.config.VCenterUUID), nil, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// GroupsForClusters translates cluster entity ids into scheduling group ids
// with one batched lookup. The controller rejects an empty id list; callers
// must not invoke this with zero ids.
func (c *Client) GroupsForClusters(ctx context.Context, clusterIDs []string) ([]Group, error) {
	body := struct {
		ClustIDs []string `json:"clustIds"`
	}{ClustIDs: clusterIDs}

	var groups []Group
	if err := c.doJSON(ctx, http.MethodPost, c.path(opGroupsForClusters, c.config.VCenterUUID), body, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListBaselineProfiles returns all baseline profiles in the client's
// vCenter scope.
func (c *Client) ListBaselineProfiles(ctx context.Context) ([]BaselineProfile, error) {
	var profiles []BaselineProfile
	if err := c.doJSON(ctx, http.MethodGet, c.path(opListBaselineProfiles, c.config.VCenterUUID), nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetBaselineProfile returns one baseline profile by id, including its
// current drift job status.
func (c *Client) GetBaselineProfile(ctx context.Context, id int64) (*BaselineProfile, error) {
	var profile BaselineProfile
	if err := c.doJSON(ctx, http.MethodGet, c.path(opBaselineProfileByID, c.config.VCenterUUID, id), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindBaselineProfile returns the baseline profile with the given name, or
// nil when no profile in scope matches.
func (c *Client) FindBaselineProfile(ctx context.Context, name string) (*BaselineProfile, error) {
	profiles, err := c.ListBaselineProfiles(ctx)
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

// CreateBaselineProfile submits a new baseline profile and returns the id
// of the profile whose drift job must then be polled to a terminal status.
func (c *Client) CreateBaselineProfile(ctx context.Context, request CreateBaselineProfileRequest) (int64, error) {
	var id int64
	if err := c.doJSON(ctx, http.MethodPost, c.path(opListBaselineProfiles, c.config.VCenterUUID), request, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ModifyBaselineProfile submits an incremental modification of an existing
// baseline profile.
func (c *Client) ModifyBaselineProfile(ctx context.Context, id int64, request ModifyBaselineProfileRequest) error {
	return c.doJSON(ctx, http.MethodPatch, c.path(opBaselineProfileByID, c.config.VCenterUUID, id), request, nil)
}

// DeleteBaselineProfile removes a baseline profile by id. Deletion is
// synchronous; no job is spawned.
func (c *Client) DeleteBaselineProfile(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, c.path(opBaselineProfileByID, c.config.VCenterUUID, id), nil, nil)
}

// GetUpdateJob returns the drift job for a baseline profile, carrying the
// live job schedule that the stored profile representation lacks.
func (c *Client) GetUpdateJob(ctx context.Context, driftJobID int64) (*UpdateJob, error) {
	var job UpdateJob
	if err := c.doJSON(ctx, http.MethodGet, c.path(opUpdateJobByID, c.config.VCenterUUID, driftJobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
