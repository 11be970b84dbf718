package baseline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// Result messages. Wording tracks the controller's own terminology so
// operators can correlate with OMEVV console logs.
const (
	MsgCreateSuccess   = "Successfully created the baseline profile."
	MsgCreateFailed    = "Unable to create the baseline profile."
	MsgModifySuccess   = "Successfully modified the baseline profile."
	MsgModifyFailed    = "Unable to modify the baseline profile."
	MsgDeleteSuccess   = "Successfully deleted the baseline profile."
	MsgDeleteFailed    = "Unable to delete the baseline profile."
	MsgChangesFound    = "Changes found to be applied."
	MsgChangesNotFound = "No changes found to be applied."
	MsgTimeoutInvalid  = "The value for the job wait timeout cannot be negative or zero."
	MsgPollTimeout     = "Timed out waiting for the baseline profile job to reach a terminal status."
)

// Backend errorCode signalling a name-uniqueness conflict. Under check mode
// this is translated to a benign "no changes" outcome.
const conflictErrorCode = "18001"

// Actor recorded on incremental modifications, matching what the OMEVV
// console itself writes.
const modifiedByActor = "Administrator@VSPHERE.LOCAL"

const defaultPollInterval = 3 * time.Second

// State is the desired end-state of the named profile.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// Request describes one reconciliation: the desired end-state of a single
// named baseline profile plus execution-mode flags.
type Request struct {
	State             State
	Name              string
	Description       string
	RepositoryProfile string
	Clusters          []string
	Days              []string
	Time              string
	CheckMode         bool
	DiffMode          bool
	JobWait           bool
	JobWaitTimeout    time.Duration
}

// Outcome is the terminal result of a reconciliation. Exactly one of the
// flag fields is meaningful; internal components never terminate the
// process, the CLI dispatcher alone maps an Outcome to exit semantics.
type Outcome struct {
	Changed     bool                   `json:"changed"`
	Failed      bool                   `json:"failed,omitempty"`
	Skipped     bool                   `json:"skipped,omitempty"`
	Unreachable bool                   `json:"unreachable,omitempty"`
	Message     string                 `json:"msg"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	Profile     *omevv.BaselineProfile `json:"baseline_profile_info,omitempty"`
	Diff        *Diff                  `json:"diff,omitempty"`
}

// Operation is one lifecycle operation (create, modify or delete) selected
// by the reconciler for a request.
type Operation interface {
	Execute(ctx context.Context) (Outcome, error)
}

// Reconciler drives a single baseline profile to its desired end-state:
// resolve names, diff desired against current, submit the minimal mutation
// and poll the resulting drift job to a terminal status.
type Reconciler struct {
	client       *omevv.Client
	resolver     *Resolver
	pollInterval time.Duration
}

// NewReconciler creates a reconciler over the given gateway client. A
// non-positive pollInterval selects the default of 3 seconds.
func NewReconciler(client *omevv.Client, pollInterval time.Duration) *Reconciler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Reconciler{
		client:       client,
		resolver:     NewResolver(client),
		pollInterval: pollInterval,
	}
}

// Reconcile selects the operation for the request (by desired end-state and
// whether a profile with the given name already exists in scope), executes
// it, and maps any error to a terminal outcome at this single boundary.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) Outcome {
	op, err := r.selectOperation(ctx, req)
	if err != nil {
		return outcomeFromError(err, req.CheckMode)
	}

	outcome, err := op.Execute(ctx)
	if err != nil {
		return outcomeFromError(err, req.CheckMode)
	}
	return outcome
}

func (r *Reconciler) selectOperation(ctx context.Context, req Request) (Operation, error) {
	if req.State == StateAbsent {
		return &deleteOperation{reconciler: r, req: req}, nil
	}

	existing, err := r.client.FindBaselineProfile(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &modifyOperation{reconciler: r, req: req, existing: existing}, nil
	}
	return &createOperation{reconciler: r, req: req}, nil
}

// validateRequest is the validation shared by create and modify: job-wait
// timeout bounds, repository profile name, cluster names. Validation
// failures are domain errors; transport failures propagate unchanged.
func validateRequest(ctx context.Context, resolver *Resolver, req Request) error {
	if req.JobWait && req.JobWaitTimeout <= 0 {
		return &ValidationError{Message: MsgTimeoutInvalid}
	}
	if err := resolver.ValidateRepositoryName(ctx, req.RepositoryProfile); err != nil {
		return err
	}
	return resolver.ValidateClusterNames(ctx, req.Clusters)
}

// attachDiff returns the diff only when diff mode asked for it.
func attachDiff(req Request, diff Diff) *Diff {
	if !req.DiffMode {
		return nil
	}
	return &diff
}

type createOperation struct {
	reconciler *Reconciler
	req        Request
}

func (op *createOperation) Execute(ctx context.Context) (Outcome, error) {
	r, req := op.reconciler, op.req

	if err := requirePresentInputs(req); err != nil {
		return Outcome{}, err
	}
	if err := validateRequest(ctx, r.resolver, req); err != nil {
		return Outcome{}, err
	}

	log.Debug().Str("profile", req.Name).Msg("Resolving identifiers for baseline profile creation")
	repoID, ok, err := r.resolver.RepositoryID(ctx, req.RepositoryProfile)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, &ValidationError{Message: fmt.Sprintf(msgInvalidRepository, req.RepositoryProfile)}
	}

	groupIDs, err := r.resolver.GroupIDs(ctx, req.Clusters)
	if err != nil {
		return Outcome{}, err
	}
	clusterGroups, err := r.resolver.ClusterGroups(ctx, req.Clusters)
	if err != nil {
		return Outcome{}, err
	}

	schedule := BuildSchedule(req.Days, req.Time)
	desired := desiredProfile{
		Name:             req.Name,
		FirmwareRepoID:   repoID,
		HasFirmwareRepo:  true,
		FirmwareRepoName: req.RepositoryProfile,
		ClusterGroups:    clusterGroups,
		Description:      req.Description,
		JobSchedule:      schedule,
	}
	diff := computeCreateDiff(desired)

	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	log.Info().Str("profile", req.Name).Msg("Creating baseline profile")
	id, err := r.client.CreateBaselineProfile(ctx, omevv.CreateBaselineProfileRequest{
		Name:           req.Name,
		FirmwareRepoID: repoID,
		GroupIDs:       groupIDs,
		Description:    req.Description,
		JobSchedule:    schedule,
	})
	if err != nil {
		return Outcome{}, err
	}

	if !req.JobWait {
		profile, err := r.client.GetBaselineProfile(ctx, id)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Changed: true, Message: MsgCreateSuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
	}

	profile, err := r.waitForTerminal(ctx, id, req.JobWaitTimeout)
	if err != nil {
		return Outcome{}, err
	}
	if profile.Status == omevv.StatusSuccessful {
		return Outcome{Changed: true, Message: MsgCreateSuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
	}
	return Outcome{Failed: true, Message: MsgCreateFailed, Profile: profile}, nil
}

// requirePresentInputs aborts a present-state reconciliation (create or
// modify) when a required input is missing, before anything reaches the
// controller. Without this guard a thin modify request would read as "remove
// every cluster group and clear the schedule".
func requirePresentInputs(req Request) error {
	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.RepositoryProfile == "" {
		missing = append(missing, "repository_profile")
	}
	if len(req.Clusters) == 0 {
		missing = append(missing, "cluster")
	}
	if len(req.Days) == 0 {
		missing = append(missing, "days")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Required parameters missing: " + strings.Join(missing, ", ")}
	}
	return nil
}

type modifyOperation struct {
	reconciler *Reconciler
	req        Request
	existing   *omevv.BaselineProfile
}

func (op *modifyOperation) Execute(ctx context.Context) (Outcome, error) {
	r, req, existing := op.reconciler, op.req, op.existing

	if err := requirePresentInputs(req); err != nil {
		return Outcome{}, err
	}
	if err := validateRequest(ctx, r.resolver, req); err != nil {
		return Outcome{}, err
	}

	log.Debug().Str("profile", req.Name).Msg("Resolving identifiers for baseline profile modification")
	existingGroupIDs := make([]int64, 0, len(existing.ClusterGroups))
	for _, group := range existing.ClusterGroups {
		existingGroupIDs = append(existingGroupIDs, group.GroupID)
	}

	desiredGroupIDs, err := r.resolver.GroupIDs(ctx, req.Clusters)
	if err != nil {
		return Outcome{}, err
	}
	toAdd, toRemove := GroupMembershipDiff(existingGroupIDs, desiredGroupIDs)

	clusterGroups, err := r.resolver.ClusterGroups(ctx, req.Clusters)
	if err != nil {
		return Outcome{}, err
	}

	repoID, ok, err := r.resolver.RepositoryID(ctx, req.RepositoryProfile)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, &ValidationError{Message: fmt.Sprintf(msgInvalidRepository, req.RepositoryProfile)}
	}

	description := req.Description
	if description == "" {
		description = existing.Description
	}

	// The stored profile does not carry the live schedule; fetch it from
	// the drift job so the diff compares actual current state.
	job, err := r.client.GetUpdateJob(ctx, existing.DriftJobID)
	if err != nil {
		return Outcome{}, err
	}

	schedule := BuildSchedule(req.Days, req.Time)
	desired := desiredProfile{
		Name:             req.Name,
		FirmwareRepoID:   repoID,
		HasFirmwareRepo:  true,
		FirmwareRepoName: req.RepositoryProfile,
		ClusterGroups:    clusterGroups,
		Description:      description,
		JobSchedule:      schedule,
	}
	diff := computeModifyDiff(existing, job.Schedule, desired)

	if diff.Empty() {
		return Outcome{Changed: false, Message: MsgChangesNotFound}, nil
	}
	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	log.Info().Str("profile", req.Name).Int64("id", existing.ID).
		Ints64("add_group_ids", toAdd).Ints64("remove_group_ids", toRemove).
		Msg("Modifying baseline profile")
	err = r.client.ModifyBaselineProfile(ctx, existing.ID, omevv.ModifyBaselineProfileRequest{
		AddGroupIDs:         nonNil(toAdd),
		RemoveGroupIDs:      nonNil(toRemove),
		JobSchedule:         schedule,
		Description:         description,
		ConfigurationRepoID: 0,
		FirmwareRepoID:      repoID,
		DriverRepoID:        0,
		ModifiedBy:          modifiedByActor,
	})
	if err != nil {
		return Outcome{}, err
	}

	if !req.JobWait {
		profile, err := r.client.GetBaselineProfile(ctx, existing.ID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Changed: true, Message: MsgModifySuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
	}

	profile, err := r.waitForTerminal(ctx, existing.ID, req.JobWaitTimeout)
	if err != nil {
		return Outcome{}, err
	}
	if profile.Status == omevv.StatusSuccessful {
		return Outcome{Changed: true, Message: MsgModifySuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
	}
	return Outcome{Failed: true, Message: MsgModifyFailed, Profile: profile}, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

type deleteOperation struct {
	reconciler *Reconciler
	req        Request
}

func (op *deleteOperation) Execute(ctx context.Context) (Outcome, error) {
	r, req := op.reconciler, op.req

	existing, err := r.client.FindBaselineProfile(ctx, req.Name)
	if err != nil {
		return Outcome{}, err
	}

	// Deleting an absent profile is always a no-op, with or without check
	// mode, and issues no DELETE call.
	if existing == nil {
		outcome := Outcome{Changed: false, Message: MsgChangesNotFound}
		if req.DiffMode && !req.CheckMode {
			outcome.Diff = &Diff{Before: map[string]any{}, After: map[string]any{}}
		}
		return outcome, nil
	}

	diff := computeDeleteDiff(existing)
	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	log.Info().Str("profile", req.Name).Int64("id", existing.ID).Msg("Deleting baseline profile")
	if err := r.client.DeleteBaselineProfile(ctx, existing.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true, Message: MsgDeleteSuccess, Diff: attachDiff(req, diff)}, nil
}

// waitForTerminal polls the profile until its drift job reaches SUCCESSFUL
// or FAILED. The wait honors context cancellation and, when timeout is
// positive, a deadline.
func (r *Reconciler) waitForTerminal(ctx context.Context, id int64, timeout time.Duration) (*omevv.BaselineProfile, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		profile, err := r.client.GetBaselineProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		if profile.Terminal() {
			return profile, nil
		}

		log.Debug().Int64("id", id).Str("status", profile.Status).Msg("Waiting for baseline profile job")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", MsgPollTimeout, ctx.Err())
		case <-time.After(r.pollInterval):
		}
	}
}

// outcomeFromError is the single boundary translating errors into terminal
// outcomes: backend application errors keep their errorCode/message, the
// name-uniqueness conflict under check mode becomes a benign no-op,
// connectivity failures are reported unreachable rather than failed.
func outcomeFromError(err error, checkMode bool) Outcome {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Outcome{Failed: true, Message: validationErr.Message}
	}

	var apiErr *omevv.APIError
	if errors.As(err, &apiErr) {
		if strings.Contains(apiErr.Code, conflictErrorCode) && checkMode {
			return Outcome{Changed: false, Message: MsgChangesNotFound}
		}
		if strings.Contains(apiErr.Code, "500") {
			return Outcome{Skipped: true, Message: apiErr.Message}
		}
		return Outcome{Failed: true, Message: apiErr.Message, ErrorCode: apiErr.Code}
	}

	if omevv.IsConnectivityError(err) {
		return Outcome{Unreachable: true, Message: err.Error()}
	}
	return Outcome{Failed: true, Message: err.Error()}
}
