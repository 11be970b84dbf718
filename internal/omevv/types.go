package omevv

// RepositoryProfile is a named firmware source location registered with the
// OMEVV controller.
type RepositoryProfile struct {
	ID             int64            `json:"id"`
	Name           string           `json:"profileName"`
	Description    string           `json:"description,omitempty"`
	ProfileType    string           `json:"profileType,omitempty"`
	ProtocolType   string           `json:"protocolType,omitempty"`
	SharePath      string           `json:"sharePath,omitempty"`
	Status         string           `json:"status,omitempty"`
	FactoryCreated bool             `json:"factoryCreated,omitempty"`
	Credential     *ShareCredential `json:"shareCredential,omitempty"`
}

// ShareCredential authenticates access to a repository share.
type ShareCredential struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
}

// Cluster is a vCenter cluster as reported by the controller. Clusters are
// read-only to this tool and always scoped to one vCenter UUID.
type Cluster struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
}

// Group is the scheduling subsystem's membership unit for a cluster,
// distinct from the cluster's entity id.
type Group struct {
	GroupID int64 `json:"groupId"`
}

// ClusterGroup binds a cluster to its scheduling group id. The relation is
// transient: it is recomputed from the controller on every reconciliation
// pass and never cached across invocations.
type ClusterGroup struct {
	ClusterID   string `json:"clusterID"`
	ClusterName string `json:"clusterName"`
	GroupID     int64  `json:"omevv_groupID"`
}

// Schedule is a weekly job schedule: seven day flags plus a 24h HH:MM time.
// A schedule is all-or-nothing; a nil *Schedule means no schedule at all.
type Schedule struct {
	Monday    bool   `json:"monday"`
	Tuesday   bool   `json:"tuesday"`
	Wednesday bool   `json:"wednesday"`
	Thursday  bool   `json:"thursday"`
	Friday    bool   `json:"friday"`
	Saturday  bool   `json:"saturday"`
	Sunday    bool   `json:"sunday"`
	Time      string `json:"time"`
}

// Baseline profile drift job statuses reported by the controller.
const (
	StatusPending    = "PENDING"
	StatusRunning    = "RUNNING"
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

// BaselineProfile binds a firmware repository, a set of cluster groups and
// an update schedule. The stored representation does not carry the live
// schedule; that is only available through the drift job lookup.
type BaselineProfile struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	FirmwareRepoID   int64          `json:"firmwareRepoId"`
	FirmwareRepoName string         `json:"firmwareRepoName,omitempty"`
	ClusterGroups    []ClusterGroup `json:"clusterGroups,omitempty"`
	DriftJobID       int64          `json:"driftJobId,omitempty"`
	Status           string         `json:"status,omitempty"`
}

// Terminal reports whether the profile's drift job has reached a terminal
// status.
func (p *BaselineProfile) Terminal() bool {
	return p.Status == StatusSuccessful || p.Status == StatusFailed
}

// UpdateJob is the drift job tracking a baseline profile's schedule and
// compliance state.
type UpdateJob struct {
	JobID    int64     `json:"jobId,omitempty"`
	JobName  string    `json:"jobName,omitempty"`
	Schedule *Schedule `json:"schedule,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// CreateBaselineProfileRequest is the POST body for baseline profile
// creation.
type CreateBaselineProfileRequest struct {
	Name           string    `json:"name"`
	FirmwareRepoID int64     `json:"firmwareRepoId"`
	GroupIDs       []int64   `json:"groupIds"`
	Description    string    `json:"description,omitempty"`
	JobSchedule    *Schedule `json:"jobSchedule,omitempty"`
}

// ModifyBaselineProfileRequest is the PATCH body for baseline profile
// modification. The controller takes incremental group membership changes
// plus full schedule/description/repository fields, not a full replace.
type ModifyBaselineProfileRequest struct {
	AddGroupIDs         []int64   `json:"addgroupIds"`
	RemoveGroupIDs      []int64   `json:"removeGroupIds"`
	JobSchedule         *Schedule `json:"jobSchedule"`
	Description         string    `json:"description"`
	ConfigurationRepoID int64     `json:"configurationRepoId"`
	FirmwareRepoID      int64     `json:"firmwareRepoId"`
	DriverRepoID        int64     `json:"driverRepoId"`
	ModifiedBy          string    `json:"modifiedBy"`
}

// CreateRepositoryProfileRequest is the POST body for repository profile
// creation.
type CreateRepositoryProfileRequest struct {
	Name         string          `json:"profileName"`
	ProtocolType string          `json:"protocolType"`
	SharePath    string          `json:"sharePath"`
	Description  string          `json:"description,omitempty"`
	ProfileType  string          `json:"profileType"`
	Credential   ShareCredential `json:"shareCredential"`
}

// ModifyRepositoryProfileRequest is the PUT body for repository profile
// modification.
type ModifyRepositoryProfileRequest struct {
	Name        string          `json:"profileName"`
	SharePath   string          `json:"sharePath"`
	Description string          `json:"description,omitempty"`
	Credential  ShareCredential `json:"shareCredential"`
}

// TestConnectionRequest is the POST body for validating access to a
// repository share before registering it.
type TestConnectionRequest struct {
	ProtocolType     string          `json:"protocolType"`
	CatalogPath      string          `json:"catalogPath"`
	Credential       ShareCredential `json:"shareCredential"`
	CheckCertificate bool            `json:"checkCertificate"`
}
