package leaderboard

import (
	"net/http"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/config"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc         *Service
	defaultSize int
}

type HandlerParams struct {
	fx.In
	Service *Service
	Config  *config.Config
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, defaultSize: p.Config.Leaderboard.DefaultPageSize}
}

func RegisterRoutes(api httpapi.API, policy *authz.Policy, h *Handler) {
	g := api.Group("/leaderboard", middleware.Require(policy, authz.Read))
	g.GET("", h.Rank)
	g.GET("/:actorID/rank", h.RankOf)
	g.GET("/:actorID/contributions", h.Contributions)
}

func (h *Handler) Rank(c *gin.Context) {
	window, err := ParseWindow(c.Query("window"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	page, err := httpapi.Page(c, h.defaultSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.svc.Rank(c.Request.Context(), window, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RankOf(c *gin.Context) {
	window, err := ParseWindow(c.Query("window"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	rank, err := h.svc.RankOf(c.Request.Context(), c.Param("actorID"), window)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actor_id": c.Param("actorID"), "window": window, "rank": rank})
}

func (h *Handler) Contributions(c *gin.Context) {
	window, err := ParseWindow(c.Query("window"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	page, err := httpapi.Page(c, h.defaultSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.svc.ContributionsOf(c.Request.Context(), c.Param("actorID"), window, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
