package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// Result messages, worded like the controller's own operation log.
const (
	MsgCreateSuccess   = "Successfully created the firmware repository profile."
	MsgCreateFailed    = "Unable to create the firmware repository profile."
	MsgModifySuccess   = "Successfully modified the firmware repository profile."
	MsgDeleteSuccess   = "Successfully deleted the firmware repository profile."
	MsgChangesFound    = "Changes found to be applied."
	MsgChangesNotFound = "No changes found to be applied."
	MsgTestConnFailed  = "Unable to access the share with the provided credentials."
	MsgTestConnOK      = "Successfully validated access to the repository share."
)

const profileTypeFirmware = "Firmware"

// State is the desired end-state of the named repository profile.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// ValidationError is a domain validation failure, reported as a failed
// outcome rather than a transport error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Request describes one repository profile reconciliation.
type Request struct {
	State        State
	Name         string
	Description  string
	CatalogPath  string
	ProtocolType string

	ShareUsername string
	SharePassword string
	ShareDomain   string

	// TestConnection asks the controller to verify share access before a
	// profile is created or modified.
	TestConnection bool

	CheckMode bool
	DiffMode  bool
}

// Diff is the before/after projection of the fields a mutation would touch.
type Diff struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Before) == 0 && len(d.After) == 0
}

// Outcome is the terminal result of a reconciliation, mirroring the baseline
// profile outcome shape.
type Outcome struct {
	Changed     bool                     `json:"changed"`
	Failed      bool                     `json:"failed,omitempty"`
	Unreachable bool                     `json:"unreachable,omitempty"`
	Message     string                   `json:"msg"`
	ErrorCode   string                   `json:"error_code,omitempty"`
	Profile     *omevv.RepositoryProfile `json:"repository_profile_info,omitempty"`
	Diff        *Diff                    `json:"diff,omitempty"`
}

// Reconciler drives a single firmware repository profile to its desired
// end-state.
type Reconciler struct {
	client *omevv.Client
}

func NewReconciler(client *omevv.Client) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile executes the operation selected by the desired end-state and
// whether the named profile already exists, mapping errors to terminal
// outcomes at this single boundary.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) Outcome {
	outcome, err := r.reconcile(ctx, req)
	if err != nil {
		return outcomeFromError(err)
	}
	return outcome
}

func (r *Reconciler) reconcile(ctx context.Context, req Request) (Outcome, error) {
	if req.Name == "" {
		return Outcome{}, &ValidationError{Message: "Required parameters missing: name"}
	}

	existing, err := r.client.FindRepositoryProfile(ctx, req.Name)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case req.State == StateAbsent:
		return r.delete(ctx, req, existing)
	case existing != nil:
		return r.modify(ctx, req, existing)
	default:
		return r.create(ctx, req)
	}
}

func (r *Reconciler) create(ctx context.Context, req Request) (Outcome, error) {
	if err := requireCreateInputs(req); err != nil {
		return Outcome{}, err
	}

	diff := computeCreateDiff(req)
	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	if req.TestConnection {
		if err := r.testConnection(ctx, req); err != nil {
			return Outcome{}, err
		}
	}

	log.Info().Str("profile", req.Name).Str("path", req.CatalogPath).Msg("Creating firmware repository profile")
	id, err := r.client.CreateRepositoryProfile(ctx, omevv.CreateRepositoryProfileRequest{
		Name:         req.Name,
		ProtocolType: req.ProtocolType,
		SharePath:    req.CatalogPath,
		Description:  req.Description,
		ProfileType:  profileTypeFirmware,
		Credential:   req.credential(),
	})
	if err != nil {
		return Outcome{}, err
	}

	profile, err := r.client.GetRepositoryProfile(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true, Message: MsgCreateSuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
}

func (r *Reconciler) modify(ctx context.Context, req Request, existing *omevv.RepositoryProfile) (Outcome, error) {
	catalogPath := req.CatalogPath
	if catalogPath == "" {
		catalogPath = existing.SharePath
	}
	description := req.Description
	if description == "" {
		description = existing.Description
	}

	diff := computeModifyDiff(existing, catalogPath, description, req.credentialSupplied())
	if diff.Empty() {
		return Outcome{Changed: false, Message: MsgChangesNotFound}, nil
	}
	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	if req.TestConnection {
		if err := r.testConnection(ctx, req); err != nil {
			return Outcome{}, err
		}
	}

	log.Info().Str("profile", req.Name).Int64("id", existing.ID).Msg("Modifying firmware repository profile")
	err := r.client.ModifyRepositoryProfile(ctx, existing.ID, omevv.ModifyRepositoryProfileRequest{
		Name:        req.Name,
		SharePath:   catalogPath,
		Description: description,
		Credential:  req.credential(),
	})
	if err != nil {
		return Outcome{}, err
	}

	profile, err := r.client.GetRepositoryProfile(ctx, existing.ID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true, Message: MsgModifySuccess, Profile: profile, Diff: attachDiff(req, diff)}, nil
}

func (r *Reconciler) delete(ctx context.Context, req Request, existing *omevv.RepositoryProfile) (Outcome, error) {
	// Deleting an absent profile is a no-op, with or without check mode.
	if existing == nil {
		return Outcome{Changed: false, Message: MsgChangesNotFound}, nil
	}

	diff := computeDeleteDiff(existing)
	if req.CheckMode {
		return Outcome{Changed: true, Message: MsgChangesFound, Diff: attachDiff(req, diff)}, nil
	}

	log.Info().Str("profile", req.Name).Int64("id", existing.ID).Msg("Deleting firmware repository profile")
	if err := r.client.DeleteRepositoryProfile(ctx, existing.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true, Message: MsgDeleteSuccess, Diff: attachDiff(req, diff)}, nil
}

// TestShareAccess runs the controller-side share connection test on its own,
// without reconciling anything. It never mutates controller state.
func (r *Reconciler) TestShareAccess(ctx context.Context, req Request) Outcome {
	if err := requireCreateInputs(req); err != nil {
		return outcomeFromError(err)
	}
	if err := r.testConnection(ctx, req); err != nil {
		return outcomeFromError(err)
	}
	return Outcome{Changed: false, Message: MsgTestConnOK}
}

// testConnection asks the controller to reach the share before mutating
// anything. Credential fields default to empty strings on the wire.
func (r *Reconciler) testConnection(ctx context.Context, req Request) error {
	err := r.client.TestConnection(ctx, omevv.TestConnectionRequest{
		ProtocolType:     req.ProtocolType,
		CatalogPath:      req.CatalogPath,
		Credential:       req.credential(),
		CheckCertificate: false,
	})
	if err != nil {
		var apiErr *omevv.APIError
		if errors.As(err, &apiErr) {
			return &ValidationError{Message: fmt.Sprintf("%s %s", MsgTestConnFailed, apiErr.Message)}
		}
		return err
	}
	return nil
}

func (req Request) credential() omevv.ShareCredential {
	return omevv.ShareCredential{
		Username: req.ShareUsername,
		Password: req.SharePassword,
		Domain:   req.ShareDomain,
	}
}

// credentialSupplied reports whether the caller gave any share credential
// field. The controller never echoes credentials back, so the only signal
// that a rotation is wanted is the field being set at all.
func (req Request) credentialSupplied() bool {
	return req.ShareUsername != "" || req.SharePassword != "" || req.ShareDomain != ""
}

func requireCreateInputs(req Request) error {
	var missing []string
	if req.CatalogPath == "" {
		missing = append(missing, "catalog_path")
	}
	if req.ProtocolType == "" {
		missing = append(missing, "protocol_type")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Required parameters missing: " + strings.Join(missing, ", ")}
	}
	return nil
}

func attachDiff(req Request, diff Diff) *Diff {
	if !req.DiffMode {
		return nil
	}
	return &diff
}

func computeCreateDiff(req Request) Diff {
	after := map[string]any{
		"profileName":  req.Name,
		"sharePath":    req.CatalogPath,
		"protocolType": req.ProtocolType,
	}
	if req.Description != "" {
		after["description"] = req.Description
	}
	return Diff{Before: map[string]any{}, After: after}
}

func computeModifyDiff(existing *omevv.RepositoryProfile, catalogPath, description string, credentialSupplied bool) Diff {
	before := map[string]any{}
	after := map[string]any{}
	if existing.SharePath != catalogPath {
		before["sharePath"] = existing.SharePath
		after["sharePath"] = catalogPath
	}
	if existing.Description != description {
		before["description"] = existing.Description
		after["description"] = description
	}
	if credentialSupplied {
		// Secrets stay out of the diff; only the fact of rotation is shown.
		before["shareCredential"] = "(stored)"
		after["shareCredential"] = "(updated)"
	}
	return Diff{Before: before, After: after}
}

func computeDeleteDiff(existing *omevv.RepositoryProfile) Diff {
	return Diff{
		Before: map[string]any{
			"profileName": existing.Name,
			"sharePath":   existing.SharePath,
			"description": existing.Description,
		},
		After: map[string]any{},
	}
}

// outcomeFromError translates errors into terminal outcomes: validation
// failures and backend application errors are failed, connectivity failures
// are unreachable.
func outcomeFromError(err error) Outcome {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Outcome{Failed: true, Message: validationErr.Message}
	}

	var apiErr *omevv.APIError
	if errors.As(err, &apiErr) {
		return Outcome{Failed: true, Message: apiErr.Message, ErrorCode: apiErr.Code}
	}

	if omevv.IsConnectivityError(err) {
		return Outcome{Unreachable: true, Message: err.Error()}
	}
	return Outcome{Failed: true, Message: err.Error()}
}
