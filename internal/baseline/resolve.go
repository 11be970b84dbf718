package baseline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// Domain validation messages surfaced when a resolved set is required to be
// non-empty or when supplied names do not exist in scope.
const (
	msgNoRepositoryProfiles = "No repository profiles found."
	msgInvalidRepository    = "Invalid repository profile: %s. Please provide a valid profile."
	msgNoClustersFound      = "No clusters found."
	msgInvalidClusters      = "Invalid cluster names: %s. Please provide valid clusters."
)

// ValidationError marks a domain validation failure (invalid or missing
// name) as opposed to a transport failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Resolver turns human-facing names into the backend-opaque identifiers the
// controller's scheduling subsystem operates on. All lookups are scoped to
// the client's vCenter UUID and fetched fresh on every call.
type Resolver struct {
	client *omevv.Client
}

// NewResolver creates a resolver over the given gateway client.
func NewResolver(client *omevv.Client) *Resolver {
	return &Resolver{client: client}
}

// ClusterIDs resolves cluster names to entity ids, preserving the backend
// listing order. Names that match no cluster are dropped; callers must not
// assume the result length equals the input length.
func (r *Resolver) ClusterIDs(ctx context.Context, names []string) ([]string, error) {
	clusters, err := r.client.ListClusters(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	ids := make([]string, 0, len(names))
	matched := 0
	for _, cluster := range clusters {
		if wanted[cluster.Name] {
			ids = append(ids, cluster.EntityID)
			matched++
		}
	}
	if matched < len(names) {
		log.Warn().Strs("clusters", names).Int("matched", matched).
			Msg("Some cluster names did not resolve and were dropped")
	}
	return ids, nil
}

// GroupIDs resolves cluster names to scheduling group ids. When no cluster
// name matches, the batched group lookup is skipped entirely (the controller
// rejects an empty id list) and an empty result is returned.
func (r *Resolver) GroupIDs(ctx context.Context, names []string) ([]int64, error) {
	clusterIDs, err := r.ClusterIDs(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(clusterIDs) == 0 {
		return nil, nil
	}

	groups, err := r.client.GroupsForClusters(ctx, clusterIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, group.GroupID)
	}
	return ids, nil
}

// ClusterGroups pairs each resolved cluster with its scheduling group id,
// in backend listing order.
func (r *Resolver) ClusterGroups(ctx context.Context, names []string) ([]omevv.ClusterGroup, error) {
	clusters, err := r.client.ListClusters(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	resolved := make([]omevv.Cluster, 0, len(names))
	ids := make([]string, 0, len(names))
	for _, cluster := range clusters {
		if wanted[cluster.Name] {
			resolved = append(resolved, cluster)
			ids = append(ids, cluster.EntityID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	groups, err := r.client.GroupsForClusters(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(groups) != len(resolved) {
		return nil, fmt.Errorf("group lookup returned %d entries for %d clusters", len(groups), len(resolved))
	}

	clusterGroups := make([]omevv.ClusterGroup, 0, len(resolved))
	for i, cluster := range resolved {
		clusterGroups = append(clusterGroups, omevv.ClusterGroup{
			ClusterID:   cluster.EntityID,
			ClusterName: cluster.Name,
			GroupID:     groups[i].GroupID,
		})
	}
	return clusterGroups, nil
}

// RepositoryID resolves a repository profile name to its id. Absence is a
// valid, expected outcome reported through ok=false, not an error.
func (r *Resolver) RepositoryID(ctx context.Context, name string) (int64, bool, error) {
	profile, err := r.client.FindRepositoryProfile(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if profile == nil {
		return 0, false, nil
	}
	return profile.ID, true, nil
}

// GroupMembershipDiff computes which group ids must be attached to and
// detached from a profile to make its membership match the desired cluster
// set: toAdd = desired − existing, toRemove = existing − desired.
func GroupMembershipDiff(existing []int64, desired []int64) (toAdd, toRemove []int64) {
	existingSet := make(map[int64]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}
	desiredSet := make(map[int64]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}

	for _, id := range desired {
		if !existingSet[id] {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range existing {
		if !desiredSet[id] {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}

// ValidateRepositoryName checks that the named repository profile exists.
// An empty backend listing and an unmatched name are domain validation
// errors; transport failures propagate unchanged.
func (r *Resolver) ValidateRepositoryName(ctx context.Context, name string) error {
	profiles, err := r.client.ListRepositoryProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return &ValidationError{Message: msgNoRepositoryProfiles}
	}
	for _, profile := range profiles {
		if profile.Name == name {
			return nil
		}
	}
	return &ValidationError{Message: fmt.Sprintf(msgInvalidRepository, name)}
}

// ValidateClusterNames checks that every supplied cluster name exists in
// scope, reporting the full list of unmatched names.
func (r *Resolver) ValidateClusterNames(ctx context.Context, names []string) error {
	clusters, err := r.client.ListClusters(ctx)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		return &ValidationError{Message: msgNoClustersFound}
	}

	known := make(map[string]bool, len(clusters))
	for _, cluster := range clusters {
		known[cluster.Name] = true
	}

	var invalid []string
	for _, name := range names {
		if !known[name] {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{Message: fmt.Sprintf(msgInvalidClusters, strings.Join(invalid, ", "))}
	}
	return nil
}
