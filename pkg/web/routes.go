package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kjfrm085feather/vps-bot/pkg/config"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
)

// Probe reports whether an optional component is up.
type Probe interface {
	IsConnected() bool
}

// Deps is what the API reads from. Only Registry is required.
type Deps struct {
	Registry *registry.Registry
	// Pending lists the armed deadlines.
	Pending func() []models.Deadline
	// MirrorSync returns when each document was last mirrored.
	MirrorSync func() map[string]time.Time
	// Bot reports whether the chat session is ready.
	Bot func() bool
	MQTT Probe
	// Started is the process start time.
	Started time.Time
}

type api struct {
	deps Deps
	now  func() time.Time
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, deps Deps) {
	h := &api{deps: deps, now: time.Now}
	api := s.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/status", h.status)
		api.GET("/vps/:id", h.resource)
		api.GET("/accounts/:id", h.account)
		api.GET("/giveaways", h.giveaways)
		api.GET("/purge", h.purge)
		api.GET("/leaderboard", h.leaderboard)
	}
}

// health returns a simple health check response
func (h *api) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "VPS bot is running",
	})
}

// status returns counts, armed deadlines and the state of every optional
// component
func (h *api) status(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"version": config.Version,
		"build":   config.BuildTime,
		"uptime":  h.now().Sub(h.deps.Started).Round(time.Second).String(),
		"stats":   h.deps.Registry.Stats(),
	}

	if h.deps.Pending != nil {
		pending := h.deps.Pending()
		byKind := make(map[models.DeadlineKind]int)
		for _, d := range pending {
			byKind[d.Kind]++
		}
		resp["deadlines"] = gin.H{"armed": len(pending), "byKind": byKind}
	}
	if h.deps.Bot != nil {
		resp["bot"] = gin.H{"isOnline": h.deps.Bot()}
	}
	if h.deps.MQTT != nil {
		resp["mqtt"] = gin.H{"isOnline": h.deps.MQTT.IsConnected()}
	}
	if h.deps.MirrorSync != nil {
		resp["mirror"] = gin.H{"lastSync": h.deps.MirrorSync()}
	}

	c.JSON(http.StatusOK, resp)
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "Not Found",
		"message": message,
		"status":  404,
	})
}

// resource returns one VPS record
func (h *api) resource(c *gin.Context) {
	res, ok := h.deps.Registry.Resource(c.Param("id"))
	if !ok {
		notFound(c, "El VPS solicitado no existe.")
		return
	}
	c.JSON(http.StatusOK, res)
}

// account returns one account and the VPS it can reach
func (h *api) account(c *gin.Context) {
	id := c.Param("id")
	acc, ok := h.deps.Registry.Account(id)
	if !ok {
		notFound(c, "La cuenta solicitada no existe.")
		return
	}

	resources := h.deps.Registry.ResourcesOf(id)
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        id,
		"account":   acc,
		"resources": ids,
	})
}

// giveaways returns the open giveaways ordered by end time
func (h *api) giveaways(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"giveaways": h.deps.Registry.Giveaways()})
}

// purge returns the purge window and how many protections are active
func (h *api) purge(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Registry.PurgeInfo())
}

// leaderboard returns the richest accounts; ?limit= caps the rows (1-100)
func (h *api) leaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "limit debe ser un número entre 1 y 100.",
				"status":  400,
			})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": h.deps.Registry.Leaderboard(limit)})
}
