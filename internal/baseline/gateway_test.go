package baseline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

const (
	testScope  = "6095e4e4-a8ac-4df7-9b42-aae05ca6b5e3"
	testPrefix = "/omevv/GatewayService/v1"
)

// fakeGateway is an in-memory OMEVV controller. It serves the read
// endpoints from its fixture state, records every mutating call, and plays
// back a scripted status sequence for profile polling.
type fakeGateway struct {
	t  *testing.T
	mu sync.Mutex

	repositories []omevv.RepositoryProfile
	clusters     []omevv.Cluster
	groupIDs     map[string]int64 // cluster entity id -> group id
	profiles     []omevv.BaselineProfile
	updateJobs   map[int64]*omevv.UpdateJob

	pollStatuses map[int64][]string // consumed one per profile-by-id fetch
	nextID       int64

	mutations    []string // recorded mutating calls, "METHOD path"
	groupLookups int      // batched getGroupsForClusters calls
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	return &fakeGateway{
		t:            t,
		groupIDs:     map[string]int64{},
		updateJobs:   map[int64]*omevv.UpdateJob{},
		pollStatuses: map[int64][]string{},
		nextID:       224,
	}
}

// start serves the fake gateway and returns a client pointed at it.
func (g *fakeGateway) start() *omevv.Client {
	server := httptest.NewServer(g)
	g.t.Cleanup(server.Close)

	client, err := omevv.NewClient(omevv.ClientConfig{
		Hostname:    server.URL,
		Username:    "administrator@vsphere.local",
		Password:    "secret",
		VCenterUUID: testScope,
	})
	if err != nil {
		g.t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func (g *fakeGateway) recordedMutations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.mutations...)
}

func (g *fakeGateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := strings.TrimPrefix(request.URL.Path, testPrefix)
	consoles := "/Consoles/" + testScope

	switch {
	case request.Method == http.MethodGet && path == "/RepositoryProfiles":
		writeJSON(writer, g.repositories)

	case request.Method == http.MethodGet && path == consoles+"/Clusters":
		writeJSON(writer, g.clusters)

	case request.Method == http.MethodPost && path == consoles+"/Groups/getGroupsForClusters":
		g.groupLookups++
		var body struct {
			ClustIDs []string `json:"clustIds"`
		}
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			g.t.Errorf("decode group lookup body: %v", err)
		}
		if len(body.ClustIDs) == 0 {
			g.t.Error("group lookup issued with empty clustIds")
		}
		groups := make([]omevv.Group, 0, len(body.ClustIDs))
		for _, id := range body.ClustIDs {
			groups = append(groups, omevv.Group{GroupID: g.groupIDs[id]})
		}
		writeJSON(writer, groups)

	case request.Method == http.MethodGet && path == consoles+"/BaselineProfiles":
		writeJSON(writer, g.profiles)

	case request.Method == http.MethodPost && path == consoles+"/BaselineProfiles":
		g.mutations = append(g.mutations, "POST /BaselineProfiles")
		var body omevv.CreateBaselineProfileRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			g.t.Errorf("decode create body: %v", err)
		}
		id := g.nextID
		g.nextID++
		g.profiles = append(g.profiles, omevv.BaselineProfile{
			ID:             id,
			Name:           body.Name,
			Description:    body.Description,
			FirmwareRepoID: body.FirmwareRepoID,
			Status:         omevv.StatusPending,
		})
		fmt.Fprintf(writer, "%d", id)

	case request.Method == http.MethodGet && strings.HasPrefix(path, consoles+"/BaselineProfiles/"):
		id := trailingID(path)
		profile := g.profileByID(id)
		if profile == nil {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		snapshot := *profile
		snapshot.Status = g.nextStatus(id, profile.Status)
		writeJSON(writer, snapshot)

	case request.Method == http.MethodPatch && strings.HasPrefix(path, consoles+"/BaselineProfiles/"):
		g.mutations = append(g.mutations, "PATCH /BaselineProfiles/"+strconv.FormatInt(trailingID(path), 10))
		writer.WriteHeader(http.StatusOK)

	case request.Method == http.MethodDelete && strings.HasPrefix(path, consoles+"/BaselineProfiles/"):
		id := trailingID(path)
		g.mutations = append(g.mutations, "DELETE /BaselineProfiles/"+strconv.FormatInt(id, 10))
		kept := g.profiles[:0]
		for _, profile := range g.profiles {
			if profile.ID != id {
				kept = append(kept, profile)
			}
		}
		g.profiles = kept
		writer.WriteHeader(http.StatusOK)

	case request.Method == http.MethodGet && strings.HasPrefix(path, consoles+"/UpdateJobs/"):
		job, ok := g.updateJobs[trailingID(path)]
		if !ok {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(writer, job)

	default:
		g.t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		writer.WriteHeader(http.StatusNotFound)
	}
}

func (g *fakeGateway) profileByID(id int64) *omevv.BaselineProfile {
	for i := range g.profiles {
		if g.profiles[i].ID == id {
			return &g.profiles[i]
		}
	}
	return nil
}

// nextStatus pops the scripted poll sequence for a profile, holding on the
// final entry once the script is exhausted.
func (g *fakeGateway) nextStatus(id int64, fallback string) string {
	statuses := g.pollStatuses[id]
	switch len(statuses) {
	case 0:
		return fallback
	case 1:
		return statuses[0]
	default:
		g.pollStatuses[id] = statuses[1:]
		return statuses[0]
	}
}

func trailingID(path string) int64 {
	parts := strings.Split(path, "/")
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(value)
}
