// Dashboard read endpoints and health.
//
//   - GET /                      aggregate view (paginated, weak ETag)
//   - GET /user/{token}          per-user view (weak ETag, 404 if unknown)
//   - GET /user/{token}/history  per-day score series
//   - GET /healthz               liveness
//
// Views are read-only; the conditional GET check runs before any list query.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellbeing-backend/internal/http/middleware"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
	"github.com/tbourn/go-wellbeing-backend/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// OverviewResponse is the aggregate dashboard view.
type OverviewResponse struct {
	Users      []services.UserSummary `json:"users"`
	Pagination Pagination             `json:"pagination"`
}

// HistoryResponse is the per-day series of one user.
type HistoryResponse struct {
	History []services.HistoryPoint `json:"history"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// pageTag narrows a collection ETag to one page window.
func pageTag(tag string, page, pageSize int) string {
	return fmt.Sprintf(`%s:%d:%d"`, strings.TrimSuffix(tag, `"`), page, pageSize)
}

// Overview godoc
// @ID          overview
// @Summary     Aggregate dashboard
// @Description Every user with their latest score, highest first; users without responses come last. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Views
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"overview:3:0:12:0:1:50\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(200) default(50)
//
// @Success     200  {object} handlers.OverviewResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Header      200  {string} Cache-Control  "private, no-cache"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      / [get]
func (h *Handlers) Overview(c *gin.Context) {
	if h.views == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "views not configured")
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	middleware.RevalidateOnly(c)
	if tag, err := h.views.OverviewTag(ctx); err == nil {
		if notModified(c, pageTag(tag, page, pageSize)) {
			return
		}
	} else {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("overview etag")
	}

	all, err := h.views.LatestScores(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeViewFailed, err.Error())
		return
	}
	from, to, pages := utils.PageBounds(len(all), page, pageSize)
	users := all[from:to]
	if users == nil {
		users = []services.UserSummary{}
	}
	ok(c, http.StatusOK, OverviewResponse{
		Users: users,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      len(all),
			TotalPages: pages,
			HasNext:    page < pages,
		},
	})
}

// UserView godoc
// @ID          userView
// @Summary     Per-user dashboard
// @Description Latest score, risk level, day-by-day history and the answer breakdown of the latest response. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Views
// @Produce     json
//
// @Param       token          path    string  true  "External token of the user"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} services.UserDetail
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Unknown token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /user/{token} [get]
func (h *Handlers) UserView(c *gin.Context) {
	if h.views == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "views not configured")
		return
	}
	ctx := c.Request.Context()
	token := c.Param("token")

	middleware.RevalidateOnly(c)
	tag, err := h.views.UserTag(ctx, token)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	case err != nil:
		middleware.LoggerFrom(c).Warn().Err(err).Msg("user etag")
	case notModified(c, tag):
		return
	}

	d, err := h.views.UserView(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeViewFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, d)
}

// UserHistory godoc
// @ID          userHistory
// @Summary     Per-user score history
// @Description One point per calendar day (the last submission of that day), oldest first.
// @Tags        Views
// @Produce     json
//
// @Param       token  path  string  true  "External token of the user"
//
// @Success     200  {object} handlers.HistoryResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /user/{token}/history [get]
func (h *Handlers) UserHistory(c *gin.Context) {
	if h.views == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "views not configured")
		return
	}
	pts, err := h.views.History(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeViewFailed, err.Error())
		return
	}
	if pts == nil {
		pts = []services.HistoryPoint{}
	}
	ok(c, http.StatusOK, HistoryResponse{History: pts})
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object} handlers.HealthResponse
// @Router      /healthz [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "ok"})
}
