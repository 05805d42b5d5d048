package store

import "context"

// Store is the persistence surface shared by the scan pipeline, the
// maturity assessor, and the HTTP layer. Implementations are backed by
// NATS KV in production and by memory in tests.
type Store interface {
	// Reports.
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	UpdateReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context, orgID string) ([]*Report, error)

	// Tools.
	CreateTool(ctx context.Context, t *Tool) error
	GetTool(ctx context.Context, id string) (*Tool, error)
	GetToolByName(ctx context.Context, orgID, name string) (*Tool, error)
	UpdateTool(ctx context.Context, t *Tool) error
	ListTools(ctx context.Context, orgID string) ([]*Tool, error)

	// Vendors. UpsertVendor enforces name uniqueness per organization.
	UpsertVendor(ctx context.Context, v *Vendor) error
	GetVendorByName(ctx context.Context, orgID, name string) (*Vendor, error)
	ListVendors(ctx context.Context, orgID string) ([]*Vendor, error)

	// Requests.
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	UpdateRequest(ctx context.Context, r *Request) error
	ListRequests(ctx context.Context, orgID string) ([]*Request, error)

	// Controls. UpsertControl enforces framework plus control_ref
	// uniqueness per organization.
	UpsertControl(ctx context.Context, c *Control) error
	GetControl(ctx context.Context, orgID, framework, controlRef string) (*Control, error)
	ListControls(ctx context.Context, orgID string) ([]*Control, error)
	ListControlsByFramework(ctx context.Context, orgID, framework string) ([]*Control, error)

	// Activities.
	AppendActivity(ctx context.Context, a *Activity) error
	ListActivities(ctx context.Context, orgID string, limit int) ([]*Activity, error)
}
