package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	UserIDHeader  = "X-User-Id"
	BrandIDHeader = "X-Brand-Id"

	maxIdentityLength = 128
)

const workspaceContextKey contextKey = "workspace"

// WorkspaceIdentity is the (user, brand) pair a request acts on.
type WorkspaceIdentity struct {
	UserID  string
	BrandID string
}

func (w WorkspaceIdentity) Complete() bool {
	return w.UserID != "" && w.BrandID != ""
}

// Workspace reads the workspace headers into the request context. Oversized
// values are dropped.
func Workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := WorkspaceIdentity{
			UserID:  headerIdentity(r, UserIDHeader),
			BrandID: headerIdentity(r, BrandIDHeader),
		}
		ctx := context.WithValue(r.Context(), workspaceContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetWorkspace(ctx context.Context) WorkspaceIdentity {
	identity, _ := ctx.Value(workspaceContextKey).(WorkspaceIdentity)
	return identity
}

func headerIdentity(r *http.Request, header string) string {
	value := strings.TrimSpace(r.Header.Get(header))
	if len(value) > maxIdentityLength {
		return ""
	}
	return value
}
