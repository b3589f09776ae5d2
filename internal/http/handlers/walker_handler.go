package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pawmarket/internal/http/middleware"
	"pawmarket/internal/modules/presence"
	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

type WalkerHandler struct {
	presence *presence.Service
}

func NewWalkerHandler(svc *presence.Service) *WalkerHandler {
	return &WalkerHandler{presence: svc}
}

func (h *WalkerHandler) Available(c *gin.Context) {
	walkers, err := h.presence.ListAvailable(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if walkers == nil {
		walkers = []presence.Walker{}
	}
	writeOK(c, http.StatusOK, "available walkers", walkers)
}

type heartbeatReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *WalkerHandler) Heartbeat(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	var req heartbeatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	uid := types.ID(middleware.CallerUID(c))
	pos := types.Point{Lat: req.Latitude, Lng: req.Longitude}
	if err := h.presence.Heartbeat(c.Request.Context(), uid, pos); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeOK(c, http.StatusOK, "online", nil)
}
