package baseline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

func testGatewayForReconcile(t *testing.T) *fakeGateway {
	gateway := testGatewayWithClusters(t)
	gateway.repositories = []omevv.RepositoryProfile{
		{ID: 1000, Name: "Dell Default Catalog", FactoryCreated: true},
		{ID: 1002, Name: "firmware-repo"},
	}
	return gateway
}

func presentRequest() Request {
	return Request{
		State:             StatePresent,
		Name:              "profile-1",
		RepositoryProfile: "firmware-repo",
		Clusters:          []string{"cluster-1", "cluster-2"},
		Days:              []string{"monday", "friday"},
		Time:              "20:00",
		JobWait:           true,
		JobWaitTimeout:    5 * time.Second,
	}
}

// seedExistingProfile installs profile-1 on the gateway in the state that
// presentRequest() describes, so a modify against it is a no-op.
func seedExistingProfile(gateway *fakeGateway) {
	gateway.profiles = []omevv.BaselineProfile{{
		ID:               224,
		Name:             "profile-1",
		FirmwareRepoID:   1002,
		FirmwareRepoName: "firmware-repo",
		ClusterGroups: []omevv.ClusterGroup{
			{ClusterID: "domain-c8", ClusterName: "cluster-1", GroupID: 1045},
			{ClusterID: "domain-c9", ClusterName: "cluster-2", GroupID: 1046},
		},
		DriftJobID: 512,
		Status:     omevv.StatusSuccessful,
	}}
	gateway.nextID = 225
	gateway.updateJobs[512] = &omevv.UpdateJob{
		JobID:    512,
		Schedule: BuildSchedule([]string{"monday", "friday"}, "20:00"),
	}
}

func newTestReconciler(gateway *fakeGateway) *Reconciler {
	return NewReconciler(gateway.start(), time.Millisecond)
}

func TestCreatePollsToSuccess(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	gateway.pollStatuses[224] = []string{omevv.StatusPending, omevv.StatusPending, omevv.StatusSuccessful}
	reconciler := newTestReconciler(gateway)

	outcome := reconciler.Reconcile(context.Background(), presentRequest())

	assert.True(t, outcome.Changed)
	assert.False(t, outcome.Failed)
	assert.Equal(t, MsgCreateSuccess, outcome.Message)
	require.NotNil(t, outcome.Profile)
	assert.Equal(t, omevv.StatusSuccessful, outcome.Profile.Status)
	assert.Equal(t, []string{"POST /BaselineProfiles"}, gateway.recordedMutations())
}

func TestCreatePollsToFailure(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	gateway.pollStatuses[224] = []string{omevv.StatusPending, omevv.StatusFailed}
	reconciler := newTestReconciler(gateway)

	outcome := reconciler.Reconcile(context.Background(), presentRequest())

	assert.True(t, outcome.Failed)
	assert.False(t, outcome.Changed)
	assert.Equal(t, MsgCreateFailed, outcome.Message)
	require.NotNil(t, outcome.Profile)
	assert.Equal(t, omevv.StatusFailed, outcome.Profile.Status)
}

func TestCreateCheckModeNeverMutates(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.CheckMode = true
	req.DiffMode = true
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgChangesFound, outcome.Message)
	require.NotNil(t, outcome.Diff)
	assert.Empty(t, outcome.Diff.Before)
	assert.Equal(t, "profile-1", outcome.Diff.After["name"])
	assert.Empty(t, gateway.recordedMutations(), "check mode must not issue mutating calls")
}

func TestCreateMissingRequiredInputs(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.Days = nil
	req.Time = ""
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Failed)
	assert.Contains(t, outcome.Message, "Required parameters missing")
	assert.Contains(t, outcome.Message, "days")
	assert.Contains(t, outcome.Message, "time")
	assert.Empty(t, gateway.recordedMutations())
}

func TestCreateInvalidRepositoryIsDomainError(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.RepositoryProfile = "no-such-repo"
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Failed)
	assert.False(t, outcome.Unreachable, "a bad name is a validation failure, not a transport one")
	assert.Contains(t, outcome.Message, "Invalid repository profile: no-such-repo")
	assert.Empty(t, gateway.recordedMutations())
}

func TestCreateInvalidTimeout(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.JobWaitTimeout = 0
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Failed)
	assert.Equal(t, MsgTimeoutInvalid, outcome.Message)
}

func TestCreateWithoutJobWaitSkipsPolling(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	gateway.pollStatuses[224] = []string{omevv.StatusPending}
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.JobWait = false
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgCreateSuccess, outcome.Message)
	require.NotNil(t, outcome.Profile)
	assert.Equal(t, omevv.StatusPending, outcome.Profile.Status, "snapshot is taken without waiting for a terminal status")
}

func TestCreatePollTimeout(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	gateway.pollStatuses[224] = []string{omevv.StatusPending}
	// poll interval longer than the deadline: the first fetch succeeds and
	// the deadline then fires during the wait, never mid-request
	reconciler := NewReconciler(gateway.start(), time.Second)

	req := presentRequest()
	req.JobWaitTimeout = 20 * time.Millisecond
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Failed)
	assert.Contains(t, outcome.Message, MsgPollTimeout)
}

func TestModifyMissingRequiredInputsAborts(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	// a thin request against an existing profile must abort, not read as
	// "detach every cluster group and clear the schedule"
	req := presentRequest()
	req.Clusters = nil
	req.Days = nil
	req.Time = ""
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Failed)
	assert.False(t, outcome.Changed)
	assert.Contains(t, outcome.Message, "Required parameters missing")
	assert.Contains(t, outcome.Message, "cluster")
	assert.Contains(t, outcome.Message, "days")
	assert.Contains(t, outcome.Message, "time")
	assert.Empty(t, gateway.recordedMutations(), "missing inputs must block the PATCH entirely")
	require.Len(t, gateway.profiles, 1)
	assert.Len(t, gateway.profiles[0].ClusterGroups, 2, "existing membership must be untouched")
}

func TestModifyNoOpShortCircuit(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	outcome := reconciler.Reconcile(context.Background(), presentRequest())

	assert.False(t, outcome.Changed)
	assert.False(t, outcome.Failed)
	assert.Equal(t, MsgChangesNotFound, outcome.Message)
	assert.Empty(t, gateway.recordedMutations(), "a no-op diff must skip the mutating call entirely")
}

func TestModifySubmitsIncrementalPayload(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	gateway.pollStatuses[224] = []string{omevv.StatusRunning, omevv.StatusSuccessful}
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.Clusters = []string{"cluster-2", "cluster-3"} // drop cluster-1, add cluster-3
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgModifySuccess, outcome.Message)
	assert.Equal(t, []string{"PATCH /BaselineProfiles/224"}, gateway.recordedMutations())
}

func TestModifyCheckModeReportsDiffWithoutMutating(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	req := presentRequest()
	req.Days = []string{"sunday"}
	req.Time = "05:00"
	req.CheckMode = true
	req.DiffMode = true
	outcome := reconciler.Reconcile(context.Background(), req)

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgChangesFound, outcome.Message)
	require.NotNil(t, outcome.Diff)
	assert.Equal(t, *BuildSchedule([]string{"monday", "friday"}, "20:00"), outcome.Diff.Before["jobSchedule"])
	assert.Equal(t, *BuildSchedule([]string{"sunday"}, "05:00"), outcome.Diff.After["jobSchedule"])
	assert.Empty(t, gateway.recordedMutations())
}

func TestModifyTwiceIsIdempotent(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	first := reconciler.Reconcile(context.Background(), presentRequest())
	second := reconciler.Reconcile(context.Background(), presentRequest())

	assert.False(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Empty(t, gateway.recordedMutations())
}

func TestDeleteWhenAbsentIsNoOp(t *testing.T) {
	for _, checkMode := range []bool{false, true} {
		gateway := testGatewayForReconcile(t)
		reconciler := newTestReconciler(gateway)

		outcome := reconciler.Reconcile(context.Background(), Request{
			State:     StateAbsent,
			Name:      "ghost",
			CheckMode: checkMode,
		})

		assert.False(t, outcome.Changed)
		assert.Equal(t, MsgChangesNotFound, outcome.Message)
		assert.Empty(t, gateway.recordedMutations(), "delete-when-absent must issue zero DELETE calls")
	}
}

func TestDeleteCheckModeReportsWithoutMutating(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	outcome := reconciler.Reconcile(context.Background(), Request{
		State:     StateAbsent,
		Name:      "profile-1",
		CheckMode: true,
		DiffMode:  true,
	})

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgChangesFound, outcome.Message)
	require.NotNil(t, outcome.Diff)
	assert.Equal(t, "profile-1", outcome.Diff.Before["name"])
	assert.Empty(t, outcome.Diff.After)
	assert.Empty(t, gateway.recordedMutations())
}

func TestDeleteRemovesProfile(t *testing.T) {
	gateway := testGatewayForReconcile(t)
	seedExistingProfile(gateway)
	reconciler := newTestReconciler(gateway)

	outcome := reconciler.Reconcile(context.Background(), Request{
		State: StateAbsent,
		Name:  "profile-1",
	})

	assert.True(t, outcome.Changed)
	assert.Equal(t, MsgDeleteSuccess, outcome.Message)
	assert.Equal(t, []string{"DELETE /BaselineProfiles/224"}, gateway.recordedMutations())
	assert.Empty(t, gateway.profiles)
}

func TestUnreachableGateway(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := omevv.NewClient(omevv.ClientConfig{
		Hostname:    url,
		Username:    "administrator@vsphere.local",
		Password:    "secret",
		VCenterUUID: testScope,
	})
	require.NoError(t, err)

	reconciler := NewReconciler(client, time.Millisecond)
	outcome := reconciler.Reconcile(context.Background(), presentRequest())

	assert.True(t, outcome.Unreachable)
	assert.False(t, outcome.Changed)
	assert.NotEmpty(t, outcome.Message)
}

func TestOutcomeFromError(t *testing.T) {
	conflict := &omevv.APIError{StatusCode: 400, Code: "18001", Message: "Baseline profile with name Test already exists."}
	outcome := outcomeFromError(conflict, true)
	assert.False(t, outcome.Changed)
	assert.False(t, outcome.Failed)
	assert.Equal(t, MsgChangesNotFound, outcome.Message)

	outcome = outcomeFromError(conflict, false)
	assert.True(t, outcome.Failed)
	assert.Equal(t, conflict.Message, outcome.Message)
	assert.Equal(t, "18001", outcome.ErrorCode)

	skipped := &omevv.APIError{StatusCode: 400, Code: "15002", Message: "Operation not applicable."}
	outcome = outcomeFromError(skipped, false)
	assert.True(t, outcome.Skipped, "backend error codes containing 500 are reported as skipped")

	validation := &ValidationError{Message: msgNoClustersFound}
	outcome = outcomeFromError(validation, false)
	assert.True(t, outcome.Failed)
	assert.Equal(t, msgNoClustersFound, outcome.Message)
}
