package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pawmarket/internal/modules/track"
	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

type TrackHandler struct {
	track *track.Service
}

func NewTrackHandler(svc *track.Service) *TrackHandler {
	return &TrackHandler{track: svc}
}

type locationUpdateReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Accuracy  float64 `json:"accuracy"`
}

func (h *TrackHandler) UpdateLocation(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	var req locationUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	res, err := h.track.Ingest(c.Request.Context(), track.IngestCommand{
		Caller:   caller(c),
		WalkID:   types.ID(c.Param("id")),
		Lat:      req.Latitude,
		Lng:      req.Longitude,
		Speed:    req.Speed,
		Accuracy: req.Accuracy,
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "location updated", gin.H{
		"current_location":  res.CurrentLocation,
		"total_distance_km": res.TotalDistanceKm,
		"route_length":      res.RouteLen,
	})
}

func (h *TrackHandler) GetLocation(c *gin.Context) {
	loc, err := h.track.Read(c.Request.Context(), caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeWalkError(c, err)
		return
	}
	route := make([]gin.H, 0, len(loc.Route))
	for _, p := range loc.Route {
		route = append(route, gin.H{
			"latitude":  p.Lat,
			"longitude": p.Lng,
			"timestamp": p.Timestamp,
			"speed":     p.Speed,
			"accuracy":  p.Accuracy,
		})
	}
	writeOK(c, http.StatusOK, "walk location", gin.H{
		"current_location":  loc.CurrentLocation,
		"route":             route,
		"total_distance_km": loc.TotalDistanceKm,
		"elapsed_seconds":   loc.ElapsedSeconds,
	})
}
