package repository

import "context"

type commitHooksKey struct{}

// CommitHooks collects work deferred until a unit of work commits. TxManager
// implementations create one per attempt of the outermost transaction and run
// it after a successful commit.
type CommitHooks struct {
	fns []func(ctx context.Context)
}

// WithCommitHooks returns ctx carrying a fresh hook list.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

// Run calls every deferred function in registration order.
func (h *CommitHooks) Run(ctx context.Context) {
	if h == nil {
		return
	}
	fns := h.fns
	h.fns = nil
	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit defers fn until the unit of work carried by ctx commits. Outside
// a unit of work fn runs immediately. A rolled back unit drops fn.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks); ok {
		hooks.fns = append(hooks.fns, fn)
		return
	}
	fn(ctx)
}
