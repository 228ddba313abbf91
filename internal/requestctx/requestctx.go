// Package requestctx carries the tenant and acting user through a request.
package requestctx

import "context"

type tenantKey struct{}

type actorKey struct{}

// DefaultTenant is used when no tenant was supplied.
const DefaultTenant = "default"

// SystemActor identifies writes made by background jobs.
const SystemActor = "system"

// WithTenant stores the tenant id on ctx.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// Tenant returns the tenant id stored on ctx, or DefaultTenant.
func Tenant(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultTenant
}

// WithActor stores the acting user id on ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// Actor returns the acting user id stored on ctx, or SystemActor.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}

// Owns reports whether an entity stamped with tenantID belongs to the tenant on
// ctx. Entities of other tenants are treated as missing.
func Owns(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		tenantID = DefaultTenant
	}
	return tenantID == Tenant(ctx)
}
