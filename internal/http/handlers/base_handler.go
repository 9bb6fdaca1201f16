// README: Base handler utilities (JSON helpers, query parsing, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleetops/internal/app"
	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/matching"
	"fleetops/internal/platform"
	"fleetops/internal/types"
)

// Session is where handlers get their service stack. Each request reads one snapshot.
type Session interface {
	Current() *app.Stack
	Rotate(ctx context.Context, token string) (platform.Account, error)
}

type errorResponse struct {
	Error string        `json:"error"`
	Kind  platform.Kind `json:"kind,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		dispatch.ErrBadRequest,
		matching.ErrInvalidTimeRange,
		fleet.ErrInvalidDate,
		fleet.ErrInvalidDateRange,
		fleet.ErrUnknownStatus,
		types.ErrInvalidID,
		types.ErrInvalidAmount,
		app.ErrEmptyToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps input errors to 400 and gateway failures through
// writePlatformError. Anything else is a 500.
func writeServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	if isBadRequest(err) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	var perr *platform.Error
	if errors.As(err, &perr) {
		writePlatformError(c, perr)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeError(c, http.StatusGatewayTimeout, "request canceled")
		return
	}
	writeError(c, http.StatusInternalServerError, "internal error")
}

func writePlatformError(c *gin.Context, perr *platform.Error) {
	writeJSON(c, statusForKind(perr.Kind), errorResponse{Error: perr.Error(), Kind: perr.Kind})
}

// statusForKind also serves single-ride dispatch outcomes. A platform 401 is answered
// with 403: the operator is authenticated here, the platform credential is what failed.
func statusForKind(k platform.Kind) int {
	switch k {
	case platform.KindUnauthorized, platform.KindForbidden:
		return http.StatusForbidden
	case platform.KindNotFound:
		return http.StatusNotFound
	case platform.KindStateMismatch:
		return http.StatusConflict
	case platform.KindTransport:
		return http.StatusGatewayTimeout
	case platform.KindUpstream, platform.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func pathID(c *gin.Context, name string) (types.ID, bool) {
	id, err := types.ParseID(c.Param(name))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}
