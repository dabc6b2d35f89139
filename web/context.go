package web

import (
	"context"

	"github.com/artpar/autoadmin/ports"
)

type ctxKey string

const adminKey ctxKey = "current_admin"

// withCurrentAdmin adds the logged-in admin to the context.
func withCurrentAdmin(ctx context.Context, a ports.CurrentAdmin) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

// CurrentAdmin returns the logged-in admin, if any.
func CurrentAdmin(ctx context.Context) (ports.CurrentAdmin, bool) {
	a, ok := ctx.Value(adminKey).(ports.CurrentAdmin)
	return a, ok
}
