package realtime

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"hirelocal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PollIntervals is what clients use when the socket is down or idle.
type PollIntervals struct {
	Disconnected time.Duration
	Connected    time.Duration
}

// ConfigResponse is the body of GET /realtime/config.
type ConfigResponse struct {
	PollIntervalMs          int64  `json:"pollIntervalMs"`
	PollIntervalConnectedMs int64  `json:"pollIntervalConnectedMs"`
	WebSocketPath           string `json:"webSocketPath"`
}

// Handler upgrades authenticated requests and serves the polling config.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	polls    PollIntervals
}

// NewHandler builds the handler. An empty allowedOrigins list accepts any
// origin.
func NewHandler(hub *Hub, allowedOrigins []string, polls PollIntervals) *Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}

	return &Handler{
		hub:   hub,
		polls: polls,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, origin)
			},
		},
	}
}

// RegisterPublicRoutes mounts the unauthenticated config endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/realtime/config", h.Config)
}

// RegisterRoutes mounts the socket endpoint. rg must run AuthRequired, which
// also accepts the token as a query parameter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Serve)
}

func (h *Handler) Config(c *gin.Context) {
	httpkit.OK(c, ConfigResponse{
		PollIntervalMs:          h.polls.Disconnected.Milliseconds(),
		PollIntervalConnectedMs: h.polls.Connected.Milliseconds(),
		WebSocketPath:           "/api/v1/ws",
	})
}

// Serve binds the socket to the authenticated user. The userId query
// parameter must name the token subject.
func (h *Handler) Serve(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid userId", nil)
		return
	}
	if userID != id.UserID() {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		return
	}
	h.hub.Register(userID, ws)
}
