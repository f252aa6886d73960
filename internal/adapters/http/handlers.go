package http

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/core"
	"github.com/dkeye/CollabRelay/internal/db"
	"github.com/dkeye/CollabRelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StatsSource reports lifetime totals from the activity journal.
type StatsSource interface {
	Stats() (db.Stats, error)
}

type API struct {
	orch    *orch.Orchestrator
	journal StatsSource
}

func NewAPI(o *orch.Orchestrator, journal StatsSource) *API {
	return &API{orch: o, journal: journal}
}

type RoomDetail struct {
	ID    domain.RoomID    `json:"id"`
	Users []core.MemberDTO `json:"users"`
	Files []string         `json:"files"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (a *API) Health(c *gin.Context) {
	rooms, users := a.orch.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"rooms":     rooms,
		"users":     users,
		"timestamp": timestamp(),
	})
}

func (a *API) ListRooms(c *gin.Context) {
	rooms := a.orch.Rooms.List()
	slices.SortFunc(rooms, func(x, y core.RoomInfo) int {
		return strings.Compare(string(x.ID), string(y.ID))
	})
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom never creates the room it is asked about.
func (a *API) GetRoom(c *gin.Context) {
	room, ok := a.orch.Rooms.GetRoom(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, RoomDetail{
		ID:    room.Room().ID,
		Users: room.MembersSnapshot(),
		Files: room.FileNames(),
	})
}

func (a *API) Stats(c *gin.Context) {
	rooms, users := a.orch.Stats()
	stats := gin.H{
		"active_rooms":       rooms,
		"active_users":       users,
		"active_connections": a.orch.Registry.Count(),
		"timestamp":          timestamp(),
	}

	if a.journal != nil {
		totals, err := a.journal.Stats()
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("journal stats")
		} else {
			stats["total_rooms"] = totals.TotalRooms
			stats["total_sessions"] = totals.TotalSessions
			stats["total_joins"] = totals.TotalJoins
		}
	}

	c.JSON(http.StatusOK, stats)
}
