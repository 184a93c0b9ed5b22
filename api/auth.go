/*
auth.go - Caller identity and tenant gate

PURPOSE:
  Authentication happens upstream. The gateway forwards the verified
  identity as headers, and this file turns them into a ledger.Actor.

HEADERS:
  X-User-ID     caller id, recorded as the author of manual entries
  X-User-Role   ADMIN for a kos operator
  X-Tenant-ID   the tenant the caller administers

TENANT GATE:
  Every route under /api/tenants/{tenantID}/ledger runs requireTenantAdmin
  first. It authorizes the actor against the route tenant and stores both
  in the request context. Handlers never read the tenant from anywhere
  else, so no store call can happen for a tenant the caller does not own.

SEE ALSO:
  - ledger/auth.go: Actor.Authorize
  - server.go: Where the gate is mounted
*/
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kosku/ledger-engine/ledger"
)

const (
	HeaderUserID     = "X-User-ID"
	HeaderUserRole   = "X-User-Role"
	HeaderTenantID   = "X-Tenant-ID"
	HeaderHookSecret = "X-Hook-Secret"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	tenantKey
)

// ActorFromRequest reads the forwarded identity headers.
func ActorFromRequest(r *http.Request) ledger.Actor {
	return ledger.Actor{
		UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:     ledger.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		TenantID: ledger.TenantID(strings.TrimSpace(r.Header.Get(HeaderTenantID))),
	}
}

// requireTenantAdmin rejects the request with 403 unless the caller
// administers the {tenantID} in the route.
func requireTenantAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := ledger.TenantID(chi.URLParam(r, "tenantID"))
		actor := ActorFromRequest(r)
		if err := actor.Authorize(tenant); err != nil {
			writeError(w, http.StatusForbidden, "Not allowed to access this tenant's ledger", err)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, tenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireHookSecret guards the internal event hooks. An empty secret
// disables the hooks entirely.
func requireHookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderHookSecret)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusForbidden, "Invalid hook secret", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tenantFrom(ctx context.Context) ledger.TenantID {
	t, _ := ctx.Value(tenantKey).(ledger.TenantID)
	return t
}

func actorFrom(ctx context.Context) ledger.Actor {
	a, _ := ctx.Value(actorKey).(ledger.Actor)
	return a
}
