package core

import "context"

// Provider is the uniform capability surface over heterogeneous billing APIs.
//
// ComputeCosts is the only operation with multi-step internal behavior
// (chunking, pagination, retry); ListWorkspaces and ListProjects are
// single-call lookups. Implementations that cannot determine costs through
// their upstream API return the CostUnavailable sentinel instead of an error.
type Provider interface {
	// ID returns the stable provider identifier used in queries and routing.
	ID() string

	// ListWorkspaces enumerates the organizational scopes visible to the
	// configured credential. Single-account providers return one synthetic
	// workspace.
	ListWorkspaces(ctx context.Context) ([]Workspace, error)

	// ListProjects enumerates billing-trackable units within a workspace.
	// An empty workspaceID means the default scope.
	ListProjects(ctx context.Context, workspaceID string) ([]Project, error)

	// ComputeCosts runs the full usage-collection pipeline for the query and
	// returns a sorted per-model breakdown with a grand total. A fatal error
	// anywhere in the window loop aborts the whole query; there are no
	// partial results.
	ComputeCosts(ctx context.Context, query CostQuery) (*CostResult, error)
}
