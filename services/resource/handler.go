package resource

import (
	"net/http"
	"strconv"
	"time"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/middleware"
	"resource-ledger/services/ledger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const defaultHistoryDays = 7

type Handler struct {
	svc    *Service
	ledger *ledger.Service
	now    func() time.Time
}

type HandlerParams struct {
	fx.In
	Service *Service
	Ledger  *ledger.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, ledger: p.Ledger, now: time.Now}
}

func RegisterRoutes(api httpapi.API, policy *authz.Policy, h *Handler) {
	g := api.Group("/resources")
	g.GET("", middleware.Require(policy, authz.Read), h.List)
	g.POST("", middleware.Require(policy, authz.Admin), h.Create)
	g.GET("/:id", middleware.Require(policy, authz.Read), h.Get)
	g.PATCH("/:id", middleware.Require(policy, authz.Admin), h.UpdateMetadata)
	g.PUT("/:id/target", middleware.Require(policy, authz.Admin), h.SetTarget)
	g.GET("/:id/history", middleware.Require(policy, authz.Read), h.History)
}

func (h *Handler) List(c *gin.Context) {
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}

	resources, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resources})
}

func (h *Handler) Create(c *gin.Context) {
	var p CreateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.Create(c.Request.Context(), p, middleware.ActorID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": res, "status": res.Status()})
}

func (h *Handler) UpdateMetadata(c *gin.Context) {
	var p MetadataParams
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.UpdateMetadata(c.Request.Context(), c.Param("id"), p, middleware.ActorID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type setTargetRequest struct {
	TargetQuantity *int64 `json:"target_quantity"`
}

func (h *Handler) SetTarget(c *gin.Context) {
	var req setTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.SetTarget(c.Request.Context(), c.Param("id"), req.TargetQuantity, middleware.ActorID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// History lists the resource's ledger entries of the last ?days (default 7,
// 0 for everything), capped at ?limit.
func (h *Handler) History(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultHistoryDays)))
	if err != nil || days < 0 {
		_ = c.Error(errutil.InvalidArgument("days must be a non-negative integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(ledger.DefaultHistoryLimit)))
	if err != nil || limit < 1 {
		_ = c.Error(errutil.InvalidArgument("limit must be a positive integer"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	var since time.Time
	if days > 0 {
		since = h.now().UTC().AddDate(0, 0, -days)
	}

	entries, err := h.ledger.ListForResource(ctx, res.ID, since, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
