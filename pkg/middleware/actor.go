package middleware

import (
	"context"
	"strings"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Headers set by the identity provider in front of the API. They are
// trusted verbatim.
const (
	HeaderActorID    = "X-Actor-ID"
	HeaderActorRoles = "X-Actor-Roles"
)

type Actor struct {
	ID    string
	Roles []string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Identity resolves the calling actor from the request headers and rejects
// anonymous requests.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if id == "" {
			_ = c.Error(errutil.Unauthorized("missing actor identity", nil))
			c.Abort()
			return
		}

		var roles []string
		for _, r := range strings.Split(c.GetHeader(HeaderActorRoles), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), Actor{ID: id, Roles: roles}))
		c.Next()
	}
}

// ActorID returns the id resolved by Identity, or "" outside it.
func ActorID(c *gin.Context) string {
	a, _ := ActorFromContext(c.Request.Context())
	return a.ID
}

// Require lets the request through only when one of the actor's roles
// grants class under policy.
func Require(policy *authz.Policy, class authz.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFromContext(c.Request.Context())
		if !ok || !policy.Allows(a.Roles, class) {
			_ = c.Error(errutil.Forbidden("operation not permitted", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
