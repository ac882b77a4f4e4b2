package ledger

import (
	"net/http"
	"strconv"
	"time"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/config"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const defaultActivityDays = 30

type Handler struct {
	svc         *Service
	defaultSize int
	maxSize     int
	now         func() time.Time
}

type HandlerParams struct {
	fx.In
	Service *Service
	Config  *config.Config
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		svc:         p.Service,
		defaultSize: p.Config.Ledger.DefaultPageSize,
		maxSize:     p.Config.Ledger.MaxPageSize,
		now:         time.Now,
	}
}

func RegisterRoutes(api httpapi.API, policy *authz.Policy, h *Handler) {
	api.GET("/activity", middleware.Require(policy, authz.Read), h.MyActivity)
	api.GET("/actors/:actorID/activity", middleware.Require(policy, authz.Admin), h.ActorActivity)
	api.GET("/resources/:id/verify", middleware.Require(policy, authz.Admin), h.Verify)
}

func (h *Handler) MyActivity(c *gin.Context) {
	h.activity(c, middleware.ActorID(c))
}

func (h *Handler) ActorActivity(c *gin.Context) {
	h.activity(c, c.Param("actorID"))
}

func (h *Handler) activity(c *gin.Context, actorID string) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultActivityDays)))
	if err != nil || days < 0 {
		_ = c.Error(errutil.InvalidArgument("days must be a non-negative integer"))
		return
	}
	page, err := httpapi.Page(c, h.defaultSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var since time.Time
	if days > 0 {
		since = h.now().UTC().AddDate(0, 0, -days)
	}

	result, err := h.svc.ListForActor(c.Request.Context(), actorID, since, page, h.maxSize)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Verify(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.svc.VerifyChain(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource_id": id, "intact": ok})
}
