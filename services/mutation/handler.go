package mutation

import (
	"net/http"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc *Service
}

type HandlerParams struct {
	fx.In
	Service *Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service}
}

func RegisterRoutes(api httpapi.API, policy *authz.Policy, h *Handler) {
	g := api.Group("/resources")
	g.POST("/bulk", middleware.Require(policy, authz.Write), h.Bulk)
	g.PUT("/:id/quantity", middleware.Require(policy, authz.Write), h.Update)
	g.POST("/:id/transfer", middleware.Require(policy, authz.Write), h.Transfer)
	g.POST("/:id/revert", middleware.Require(policy, authz.Admin), h.Revert)
}

func (h *Handler) Update(c *gin.Context) {
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	p.ResourceID = c.Param("id")
	p.ActorID = middleware.ActorID(c)

	result, err := h.svc.ApplyUpdate(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Transfer(c *gin.Context) {
	var p TransferParams
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	p.ResourceID = c.Param("id")
	p.ActorID = middleware.ActorID(c)

	result, err := h.svc.ApplyTransfer(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkRequest struct {
	Items []BulkItem `json:"items"`
}

func (h *Handler) Bulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := h.svc.ApplyBulk(c.Request.Context(), middleware.ActorID(c), req.Items)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Revert(c *gin.Context) {
	result, err := h.svc.RevertLastChange(c.Request.Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
