// Package authz holds the AuthorizationPolicy consulted by the transport
// layer before it calls the ledger. The ledger itself never authorizes.
package authz

import (
	"fmt"
	"strings"

	"resource-ledger/pkg/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
)

var Module = fx.Module("authz", fx.Provide(ProvidePolicy))

// Class is an operation class. Admin implies write, write implies read.
type Class string

const (
	Read  Class = "read"
	Write Class = "write"
	Admin Class = "admin"
)

const rbacModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act
`

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func ProvidePolicy(cfg *config.Config) (*Policy, error) {
	return NewPolicy(cfg.AccessControl.Roles)
}

// NewPolicy builds a policy granting each role the listed classes.
func NewPolicy(roles map[string][]string) (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, c := range []Class{Read, Write, Admin} {
		if _, err := e.AddPolicy(classSubject(c), string(c)); err != nil {
			return nil, err
		}
	}
	if _, err := e.AddGroupingPolicy(classSubject(Write), classSubject(Read)); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicy(classSubject(Admin), classSubject(Write)); err != nil {
		return nil, err
	}

	for role, classes := range roles {
		for _, raw := range classes {
			c := Class(strings.ToLower(strings.TrimSpace(raw)))
			switch c {
			case Read, Write, Admin:
			default:
				return nil, fmt.Errorf("role %q: unknown operation class %q", role, raw)
			}
			if _, err := e.AddGroupingPolicy(roleSubject(role), classSubject(c)); err != nil {
				return nil, err
			}
		}
	}

	return &Policy{enforcer: e}, nil
}

// Allows reports whether any of roles grants class.
func (p *Policy) Allows(roles []string, class Class) bool {
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		ok, err := p.enforcer.Enforce(roleSubject(role), string(class))
		if err == nil && ok {
			return true
		}
	}
	return false
}

func classSubject(c Class) string { return "class:" + string(c) }

func roleSubject(role string) string { return "role:" + strings.ToLower(role) }
