package baseline

import (
	"reflect"
	"sort"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// Diff is a before/after change-set over the normalized profile key set
// {name, firmwareRepoId, firmwareRepoName, clusterGroups, description,
// jobSchedule}. Absent values are omitted, so both maps are sparse. An
// empty Diff on modify is the orchestrator's signal to skip the mutating
// call entirely.
type Diff struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

// Empty reports whether the diff carries no change on either side.
func (d Diff) Empty() bool {
	return len(d.Before) == 0 && len(d.After) == 0
}

// desiredProfile is the normalized desired-state projection the diff engine
// compares against the live profile.
type desiredProfile struct {
	Name             string
	FirmwareRepoID   int64
	HasFirmwareRepo  bool
	FirmwareRepoName string
	ClusterGroups    []omevv.ClusterGroup
	Description      string
	JobSchedule      *omevv.Schedule
}

func (d desiredProfile) projection() map[string]any {
	after := map[string]any{
		"name": d.Name,
	}
	if d.HasFirmwareRepo {
		after["firmwareRepoId"] = d.FirmwareRepoID
	}
	if d.FirmwareRepoName != "" {
		after["firmwareRepoName"] = d.FirmwareRepoName
	}
	if d.ClusterGroups != nil {
		after["clusterGroups"] = sortedGroups(d.ClusterGroups)
	}
	if d.Description != "" {
		after["description"] = d.Description
	}
	if d.JobSchedule != nil {
		after["jobSchedule"] = *d.JobSchedule
	}
	return after
}

// computeCreateDiff reports the change-set for a profile that does not
// exist yet: everything desired, nothing before.
func computeCreateDiff(desired desiredProfile) Diff {
	return Diff{
		Before: map[string]any{},
		After:  desired.projection(),
	}
}

// computeModifyDiff projects the existing profile onto the normalized key
// set, substituting the live-polled schedule for the stored field (the
// stored representation does not carry the live schedule), and compares it
// structurally with the desired projection. Equal projections yield the
// explicit no-op diff.
func computeModifyDiff(existing *omevv.BaselineProfile, liveSchedule *omevv.Schedule, desired desiredProfile) Diff {
	before := map[string]any{}
	if existing.Name != "" {
		before["name"] = existing.Name
	}
	if existing.FirmwareRepoID != 0 {
		before["firmwareRepoId"] = existing.FirmwareRepoID
	}
	if existing.FirmwareRepoName != "" {
		before["firmwareRepoName"] = existing.FirmwareRepoName
	}
	if existing.ClusterGroups != nil {
		before["clusterGroups"] = sortedGroups(existing.ClusterGroups)
	}
	if existing.Description != "" {
		before["description"] = existing.Description
	}
	if liveSchedule != nil {
		before["jobSchedule"] = *liveSchedule
	}

	after := desired.projection()
	if reflect.DeepEqual(before, after) {
		return Diff{Before: map[string]any{}, After: map[string]any{}}
	}
	return Diff{Before: before, After: after}
}

// computeDeleteDiff reports the fixed projection of the profile being
// removed. All five keys are emitted regardless of value so the reader sees
// the full shape of what disappears.
func computeDeleteDiff(existing *omevv.BaselineProfile) Diff {
	return Diff{
		Before: map[string]any{
			"name":             existing.Name,
			"description":      existing.Description,
			"firmwareRepoId":   existing.FirmwareRepoID,
			"firmwareRepoName": existing.FirmwareRepoName,
			"clusterGroups":    sortedGroups(existing.ClusterGroups),
		},
		After: map[string]any{},
	}
}

// sortedGroups returns a copy ordered by group id so that structural
// comparison does not depend on backend listing order.
func sortedGroups(groups []omevv.ClusterGroup) []omevv.ClusterGroup {
	out := append([]omevv.ClusterGroup(nil), groups...)
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}
