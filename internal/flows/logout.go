package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Clear func(context.Context) error
}

// RunLogout clears persisted state. The returned error is informational;
// callers reset in-memory state regardless.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.Clear == nil {
		return nil
	}
	return deps.Clear(ctx)
}
