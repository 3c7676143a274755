package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own *gorm.DB handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is a convenience for worker-side calls that carry a
// context.Context but no enclosing transaction.
func Background(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
