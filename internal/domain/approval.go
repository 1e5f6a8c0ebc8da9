package domain

import "context"

type approvalKey struct{}

// ContextWithApproval records the caller's wallet-spend decision for this
// request. The transport layer sets it from the resubmitted request; the
// guard's confirmation port reads it.
func ContextWithApproval(ctx context.Context, approved bool) context.Context {
	return context.WithValue(ctx, approvalKey{}, approved)
}

// ApprovalFromContext extracts the wallet-spend decision. ok is false when
// the caller has not been asked yet.
func ApprovalFromContext(ctx context.Context) (approved, ok bool) {
	approved, ok = ctx.Value(approvalKey{}).(bool)
	return approved, ok
}
