// Task and operator handlers. Every route sits behind RequireSecret with the
// task token; the handlers assume an authenticated caller.
//
//   - POST /tasks/daily_push              one daily push firing (external cron trigger)
//   - POST {admin}/users                  manual registration of a platform user id
//   - GET  {admin}/responses/unresolved   submissions kept without a user
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellbeing-backend/internal/services"
	"github.com/tbourn/go-wellbeing-backend/internal/utils"
)

// DailyPushResponse reports one firing.
type DailyPushResponse struct {
	OK bool `json:"ok" example:"true"`
	services.RunSummary
}

// RegisterUserRequest is the JSON payload for manual registration.
type RegisterUserRequest struct {
	// LINE user id (U + 32 hex chars).
	LineUserID string `json:"line_user_id" binding:"required,max=64" example:"U4af4980629d1e2b1c2d3e4f5a6b7c8d9"`
	// Optional display name; the profile name is used when empty.
	Name string `json:"name" binding:"max=255" example:"Taro"`
}

// RegisterUserResponse carries the (possibly pre-existing) identity.
type RegisterUserResponse struct {
	OK            bool   `json:"ok" example:"true"`
	Created       bool   `json:"created" example:"true"`
	ID            string `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	ExternalToken string `json:"external_token" example:"Zt3q0bL8r7yq2m1VnXo9aPQe"`
}

// UnresolvedResponse lists kept submissions for an operator.
type UnresolvedResponse struct {
	Count     int                             `json:"count" example:"1"`
	Responses []services.UnresolvedSubmission `json:"responses"`
}

// DailyPush godoc
// @ID          dailyPush
// @Summary     Run the daily push
// @Description Claims today's dispatch for every user and sends their links. Users already claimed today are skipped, so repeated triggers are harmless.
// @Tags        Tasks
// @Produce     json
//
// @Param       X-Task-Token  header  string  true  "Shared task secret"
//
// @Success     200  {object}  handlers.DailyPushResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Bad or missing secret"
// @Failure     500  {object}  handlers.ErrorResponse  "Run aborted"
// @Router      /tasks/daily_push [post]
func (h *Handlers) DailyPush(c *gin.Context) {
	if h.daily == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "daily push not configured")
		return
	}
	sum, err := h.daily.RunOnce(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeRunFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, DailyPushResponse{OK: true, RunSummary: sum})
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a user
// @Description Links a LINE user id through the same path as a follow event. Registering an existing id returns its token with created=false.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-Task-Token  header  string                         true  "Shared task secret"
// @Param       body          body    handlers.RegisterUserRequest   true  "User to register"
//
// @Success     201  {object}  handlers.RegisterUserResponse  "Created"
// @Success     200  {object}  handlers.RegisterUserResponse  "Already registered"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad or missing secret"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	if h.registry == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "registry not configured")
		return
	}
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.LineUserID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "line_user_id required")
		return
	}

	u, created, err := h.registry.Register(c.Request.Context(), req.LineUserID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrEmptyPlatformID) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeRegisterFailed, err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, RegisterUserResponse{OK: true, Created: created, ID: u.ID, ExternalToken: u.ExternalToken})
}

// UnresolvedResponses godoc
// @ID          listUnresolvedResponses
// @Summary     List unresolved submissions
// @Description Submissions whose token matched no user, kept under UNRESOLVED_POLICY=store, most recently received first.
// @Tags        Admin
// @Produce     json
//
// @Param       X-Task-Token  header  string  true   "Shared task secret"
// @Param       limit         query   int     false  "Maximum rows (default 100, max 1000)"
//
// @Success     200  {object}  handlers.UnresolvedResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Bad or missing secret"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/responses/unresolved [get]
func (h *Handlers) UnresolvedResponses(c *gin.Context) {
	if h.orphans == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "survey store not configured")
		return
	}
	const (
		defaultLimit = 100
		maxLimit     = 1000
	)
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), defaultLimit), 1, maxLimit)

	rows, err := h.orphans.Unresolved(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UnresolvedResponse{Count: len(rows), Responses: rows})
}
