// Package handlers contains the gin HTTP handlers, one struct per concern.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pawmarket/internal/http/middleware"
	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

// response is the common envelope: every reply carries a success flag and a
// human-readable message.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeOK(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, response{Success: true, Message: msg, Data: data})
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, response{Success: false, Message: msg})
}

// writeWalkError maps the walk error taxonomy onto status codes: validation
// 400, missing 404, ownership/role 403, state conflicts and lost races 409.
func writeWalkError(c *gin.Context, err error) {
	var stateErr *walk.StateError
	switch {
	case errors.Is(err, walk.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, walk.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, walk.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, walk.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.As(err, &stateErr):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// caller builds the walk.Caller from the auth middleware's context values.
func caller(c *gin.Context) walk.Caller {
	return walk.Caller{
		ID:   types.ID(middleware.CallerUID(c)),
		Role: walk.Role(middleware.CallerRole(c)),
	}
}

// requireRole enforces the operation's role before any state is read. A
// missing role claim is treated as no role at all.
func requireRole(c *gin.Context, roles ...walk.Role) bool {
	got := walk.Role(middleware.CallerRole(c))
	for _, r := range roles {
		if got == r {
			return true
		}
	}
	writeError(c, http.StatusForbidden, "not authorized")
	return false
}
