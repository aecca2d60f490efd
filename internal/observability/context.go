package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	caseIDKey     contextKey = "case_id"
	workflowIDKey contextKey = "workflow_id"
	runIDKey      contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithCaseID adds a case ID to the context.
func WithCaseID(ctx context.Context, caseID string) context.Context {
	return context.WithValue(ctx, caseIDKey, caseID)
}

// CaseIDFromContext retrieves the case ID from context.
// Returns empty string if not present.
func CaseIDFromContext(ctx context.Context) string {
	if v := ctx.Value(caseIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// WorkflowFromContext retrieves workflow ID and run ID from context.
// Returns empty strings if not present.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	if v := ctx.Value(workflowIDKey); v != nil {
		if id, ok := v.(string); ok {
			workflowID = id
		}
	}
	if v := ctx.Value(runIDKey); v != nil {
		if id, ok := v.(string); ok {
			runID = id
		}
	}
	return workflowID, runID
}

// CaseContext contains the correlation identifiers for a petition case.
type CaseContext struct {
	RequestID  string
	CaseID     string
	WorkflowID string
	RunID      string
}

// WithCaseContextFull adds all case correlation identifiers to the context.
func WithCaseContextFull(ctx context.Context, cc CaseContext) context.Context {
	if cc.RequestID != "" {
		ctx = WithRequestID(ctx, cc.RequestID)
	}
	if cc.CaseID != "" {
		ctx = WithCaseID(ctx, cc.CaseID)
	}
	if cc.WorkflowID != "" || cc.RunID != "" {
		ctx = WithWorkflow(ctx, cc.WorkflowID, cc.RunID)
	}
	return ctx
}

// CaseContextFromContext extracts all case correlation identifiers from the context.
func CaseContextFromContext(ctx context.Context) CaseContext {
	workflowID, runID := WorkflowFromContext(ctx)

	return CaseContext{
		RequestID:  RequestIDFromContext(ctx),
		CaseID:     CaseIDFromContext(ctx),
		WorkflowID: workflowID,
		RunID:      runID,
	}
}
