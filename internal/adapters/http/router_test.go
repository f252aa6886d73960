package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/CollabRelay/internal/adapters/signal"
	"github.com/dkeye/CollabRelay/internal/app"
	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/config"
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/db"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/gin-gonic/gin"
)

type stubSignal struct{}

func (stubSignal) TrySend(core.Frame) error { return nil }
func (stubSignal) Close()                   {}

type stubStats struct {
	stats db.Stats
	err   error
}

func (s stubStats) Stats() (db.Stats, error) { return s.stats, s.err }

func setupRouter(t *testing.T, journal StatsSource) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   app.KickPolicy{},
	}
	cfg := &config.Config{Mode: "test", Secret: "test-secret", StaticPath: t.TempDir()}
	ctl := signal.NewSignalWSController(o, signal.DefaultOptions())
	return SetupRouter(cfg, o, ctl, journal), o
}

func join(o *orch.Orchestrator, sid, room, user string) {
	o.Registry.BindSignal(core.SessionID(sid), stubSignal{}, nil)
	o.Join(core.SessionID(sid), domain.RoomID(room), domain.User{ID: domain.UserID(user), Name: user})
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealthHandler(t *testing.T) {
	r, o := setupRouter(t, nil)
	join(o, "s1", "r", "alice")

	w := get(t, r, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%v'", response["status"])
	}
	if response["rooms"] != float64(1) || response["users"] != float64(1) {
		t.Errorf("Expected 1 room and 1 user, got %v/%v", response["rooms"], response["users"])
	}
	if _, ok := response["timestamp"]; !ok {
		t.Error("Response should contain timestamp")
	}
}

func TestClientTokenCookie(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := get(t, r, "/health")
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionName {
			found = true
		}
	}
	if !found {
		t.Error("Expected session cookie to be issued")
	}
}

func TestListRooms(t *testing.T) {
	r, o := setupRouter(t, nil)
	join(o, "s1", "b", "alice")
	join(o, "s2", "a", "bob")
	join(o, "s3", "a", "carol")

	w := get(t, r, "/api/rooms")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	decode(t, w, &response)
	if len(response.Rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(response.Rooms))
	}
	if response.Rooms[0].ID != "a" || response.Rooms[0].Users != 2 {
		t.Errorf("Expected room a with 2 users first, got %+v", response.Rooms[0])
	}
	if response.Rooms[1].Files != 2 {
		t.Errorf("Expected 2 default files, got %d", response.Rooms[1].Files)
	}
}

func TestGetRoom(t *testing.T) {
	r, o := setupRouter(t, nil)
	join(o, "s1", "r", "alice")

	w := get(t, r, "/api/rooms/r")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var detail RoomDetail
	decode(t, w, &detail)
	if len(detail.Users) != 1 || detail.Users[0].ID != "alice" {
		t.Errorf("Expected alice in room, got %+v", detail.Users)
	}
	if len(detail.Files) != 2 || detail.Files[0] != "main.js" {
		t.Errorf("Expected default files, got %v", detail.Files)
	}

	w = get(t, r, "/api/rooms/missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if _, ok := o.Rooms.GetRoom("missing"); ok {
		t.Error("Lookup must not create the room")
	}
}

func TestStatsHandler(t *testing.T) {
	tests := []struct {
		name      string
		journal   StatsSource
		wantTotal bool
	}{
		{"without journal", nil, false},
		{"with journal", stubStats{stats: db.Stats{TotalRooms: 5, TotalSessions: 7, TotalJoins: 9}}, true},
		{"journal error", stubStats{err: errors.New("disk gone")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupRouter(t, tt.journal)

			w := get(t, r, "/api/stats")
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var response map[string]interface{}
			decode(t, w, &response)

			if _, ok := response["active_rooms"]; !ok {
				t.Error("Response should contain active_rooms")
			}
			total, ok := response["total_rooms"]
			if ok != tt.wantTotal {
				t.Fatalf("Expected total_rooms present=%v, got %v", tt.wantTotal, ok)
			}
			if ok && total != float64(5) {
				t.Errorf("Expected total_rooms 5, got %v", total)
			}
		})
	}
}
