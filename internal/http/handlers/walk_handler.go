package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

type WalkHandler struct {
	walks *walk.Service
}

func NewWalkHandler(svc *walk.Service) *WalkHandler {
	return &WalkHandler{walks: svc}
}

type bookWalkReq struct {
	PetID               string `json:"pet_id"`
	PetName             string `json:"pet_name"`
	WalkerID            string `json:"walker_id"`
	ScheduledDate       string `json:"scheduled_date"` // 2006-01-02
	ScheduledTime       string `json:"scheduled_time"` // 15:04
	Timezone            string `json:"timezone"`       // IANA name, default UTC
	DurationMins        int    `json:"duration_mins"`
	SpecialInstructions string `json:"special_instructions"`
	PickupLocation      string `json:"pickup_location"`
	DropoffLocation     string `json:"dropoff_location"`
}

// combineSchedule folds the separate date and time fields into one
// timezone-aware instant. Keeping them apart makes "is this walk in the
// past" ambiguous across zones, so they are combined at the boundary.
func combineSchedule(date, clock, tz string) (time.Time, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
}

func (h *WalkHandler) Book(c *gin.Context) {
	if !requireRole(c, walk.RoleOwner) {
		return
	}
	var req bookWalkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PetID == "" {
		writeError(c, http.StatusBadRequest, "pet_id is required")
		return
	}
	scheduledAt, err := combineSchedule(req.ScheduledDate, req.ScheduledTime, req.Timezone)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid schedule")
		return
	}

	cmd := walk.BookCommand{
		Caller:              caller(c),
		PetID:               types.ID(req.PetID),
		PetName:             req.PetName,
		ScheduledAt:         scheduledAt,
		DurationMins:        req.DurationMins,
		SpecialInstructions: req.SpecialInstructions,
		PickupLocation:      req.PickupLocation,
		DropoffLocation:     req.DropoffLocation,
	}
	if req.WalkerID != "" {
		id := types.ID(req.WalkerID)
		cmd.WalkerID = &id
	}
	w, err := h.walks.Book(c.Request.Context(), cmd)
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, "walk booked", walkView(w))
}

func (h *WalkHandler) MyWalks(c *gin.Context) {
	filter := walk.Status(c.Query("status"))
	if filter != "" && !knownStatus(filter) {
		writeError(c, http.StatusBadRequest, "unknown status filter")
		return
	}
	walks, err := h.walks.List(c.Request.Context(), caller(c), filter)
	if err != nil {
		writeWalkError(c, err)
		return
	}
	views := make([]gin.H, 0, len(walks))
	for _, w := range walks {
		views = append(views, walkView(w))
	}
	writeOK(c, http.StatusOK, "walks", views)
}

func (h *WalkHandler) Get(c *gin.Context) {
	w, err := h.walks.Get(c.Request.Context(), caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk", walkView(w))
}

func (h *WalkHandler) Accept(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	err := h.walks.Accept(c.Request.Context(), walk.AcceptCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk confirmed", gin.H{"status": walk.StatusConfirmed})
}

func (h *WalkHandler) Decline(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	err := h.walks.Decline(c.Request.Context(), walk.DeclineCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk declined", gin.H{"status": walk.StatusCancelled})
}

func (h *WalkHandler) Start(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	err := h.walks.Start(c.Request.Context(), walk.StartCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk started", gin.H{"status": walk.StatusInProgress})
}

func (h *WalkHandler) Complete(c *gin.Context) {
	if !requireRole(c, walk.RoleWalker) {
		return
	}
	err := h.walks.Complete(c.Request.Context(), walk.CompleteCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk completed", gin.H{"status": walk.StatusCompleted})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *WalkHandler) Cancel(c *gin.Context) {
	if !requireRole(c, walk.RoleOwner, walk.RoleWalker) {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	err := h.walks.Cancel(c.Request.Context(), walk.CancelCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
		Reason: req.Reason,
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk cancelled", gin.H{"status": walk.StatusCancelled})
}

func (h *WalkHandler) CancelByOwner(c *gin.Context) {
	if !requireRole(c, walk.RoleOwner) {
		return
	}
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	err := h.walks.CancelByOwner(c.Request.Context(), walk.CancelCommand{
		Caller: caller(c),
		WalkID: types.ID(c.Param("id")),
		Reason: req.Reason,
	})
	if err != nil {
		writeWalkError(c, err)
		return
	}
	writeOK(c, http.StatusOK, "walk cancelled", gin.H{"status": walk.StatusCancelled})
}

// Events serves the append-only transition history for one walk.
func (h *WalkHandler) Events(c *gin.Context) {
	events, err := h.walks.Events(c.Request.Context(), caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeWalkError(c, err)
		return
	}
	views := make([]gin.H, 0, len(events))
	for _, e := range events {
		v := gin.H{
			"from_status": e.FromStatus,
			"to_status":   e.ToStatus,
			"actor_type":  e.ActorType,
			"created_at":  e.CreatedAt,
		}
		if e.ActorID != nil {
			v["actor_id"] = *e.ActorID
		}
		views = append(views, v)
	}
	writeOK(c, http.StatusOK, "walk history", views)
}

func knownStatus(s walk.Status) bool {
	switch s {
	case walk.StatusUnassigned, walk.StatusPending, walk.StatusConfirmed,
		walk.StatusInProgress, walk.StatusCompleted, walk.StatusCancelled:
		return true
	}
	return false
}

func walkView(w *walk.Walk) gin.H {
	v := gin.H{
		"id":                w.ID,
		"pet_id":            w.PetID,
		"pet_name":          w.PetName,
		"owner_id":          w.OwnerID,
		"status":            w.Status,
		"scheduled_at":      w.ScheduledAt,
		"duration_mins":     w.DurationMins,
		"price":             w.Price,
		"pickup_location":   w.PickupLocation,
		"dropoff_location":  w.DropoffLocation,
		"total_distance_km": w.TotalDistanceKm,
	}
	if w.WalkerID != nil {
		v["walker_id"] = *w.WalkerID
	}
	if w.SpecialInstructions != "" {
		v["special_instructions"] = w.SpecialInstructions
	}
	if w.StartedAt != nil {
		v["started_at"] = w.StartedAt
	}
	if w.EstimatedEndTime != nil {
		v["estimated_end_time"] = w.EstimatedEndTime
	}
	if w.CompletedAt != nil {
		v["completed_at"] = w.CompletedAt
	}
	if w.ActualDuration != nil {
		v["actual_duration_mins"] = *w.ActualDuration
	}
	if w.CancelledAt != nil {
		v["cancelled_at"] = w.CancelledAt
		v["cancellation_reason"] = w.CancellationReason
		if w.CancelledBy != nil {
			v["cancelled_by"] = *w.CancelledBy
		}
	}
	return v
}
