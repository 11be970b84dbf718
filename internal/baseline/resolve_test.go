package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

func testGatewayWithClusters(t *testing.T) *fakeGateway {
	gateway := newFakeGateway(t)
	gateway.clusters = []omevv.Cluster{
		{EntityID: "domain-c8", Name: "cluster-1"},
		{EntityID: "domain-c9", Name: "cluster-2"},
		{EntityID: "domain-c12", Name: "cluster-3"},
	}
	gateway.groupIDs = map[string]int64{
		"domain-c8":  1045,
		"domain-c9":  1046,
		"domain-c12": 1047,
	}
	return gateway
}

func TestResolverClusterIDsBackendOrder(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	// input order differs from backend listing order
	ids, err := resolver.ClusterIDs(context.Background(), []string{"cluster-3", "cluster-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"domain-c8", "domain-c12"}, ids)
}

func TestResolverClusterIDsSilentlyDropsUnknown(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	ids, err := resolver.ClusterIDs(context.Background(), []string{"cluster-1", "no-such-cluster"})
	require.NoError(t, err)
	assert.Equal(t, []string{"domain-c8"}, ids, "unmatched names are dropped, not errors")
}

func TestResolverGroupIDs(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	ids, err := resolver.GroupIDs(context.Background(), []string{"cluster-1", "cluster-2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1045, 1046}, ids)
	assert.Equal(t, 1, gateway.groupLookups, "one batched lookup per resolution")
}

func TestResolverGroupIDsSkipsBatchedCallWhenEmpty(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	ids, err := resolver.GroupIDs(context.Background(), []string{"no-such-cluster"})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, gateway.groupLookups, "empty id set must not issue the batched lookup")
}

func TestResolverClusterGroups(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	groups, err := resolver.ClusterGroups(context.Background(), []string{"cluster-1", "cluster-2"})
	require.NoError(t, err)
	assert.Equal(t, []omevv.ClusterGroup{
		{ClusterID: "domain-c8", ClusterName: "cluster-1", GroupID: 1045},
		{ClusterID: "domain-c9", ClusterName: "cluster-2", GroupID: 1046},
	}, groups)
}

func TestResolverRepositoryIDAbsentIsNotError(t *testing.T) {
	gateway := newFakeGateway(t)
	gateway.repositories = []omevv.RepositoryProfile{{ID: 1002, Name: "firmware-repo"}}
	resolver := NewResolver(gateway.start())

	id, ok, err := resolver.RepositoryID(context.Background(), "firmware-repo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1002), id)

	_, ok, err = resolver.RepositoryID(context.Background(), "missing-repo")
	require.NoError(t, err, "absence is a valid outcome, not an error")
	assert.False(t, ok)
}

func TestResolverValidateRepositoryName(t *testing.T) {
	gateway := newFakeGateway(t)
	resolver := NewResolver(gateway.start())

	err := resolver.ValidateRepositoryName(context.Background(), "any")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, msgNoRepositoryProfiles, validationErr.Message)

	gateway.repositories = []omevv.RepositoryProfile{{ID: 1, Name: "known"}}
	err = resolver.ValidateRepositoryName(context.Background(), "unknown")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "Invalid repository profile: unknown")

	assert.NoError(t, resolver.ValidateRepositoryName(context.Background(), "known"))
}

func TestResolverValidateClusterNames(t *testing.T) {
	gateway := testGatewayWithClusters(t)
	resolver := NewResolver(gateway.start())

	assert.NoError(t, resolver.ValidateClusterNames(context.Background(), []string{"cluster-1", "cluster-2"}))

	err := resolver.ValidateClusterNames(context.Background(), []string{"cluster-1", "typo-a", "typo-b"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "typo-a, typo-b")
}
