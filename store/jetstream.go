package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names for each record type.
const (
	BucketReports    = "AEGIS_REPORTS"
	BucketTools      = "AEGIS_TOOLS"
	BucketVendors    = "AEGIS_VENDORS"
	BucketRequests   = "AEGIS_REQUESTS"
	BucketControls   = "AEGIS_CONTROLS"
	BucketActivities = "AEGIS_ACTIVITIES"
)

// KVStore implements Store backed by NATS JetStream KV buckets.
type KVStore struct {
	reports    jetstream.KeyValue
	tools      jetstream.KeyValue
	vendors    jetstream.KeyValue
	requests   jetstream.KeyValue
	controls   jetstream.KeyValue
	activities jetstream.KeyValue
}

var _ Store = (*KVStore)(nil)

// NewKVStore creates a KVStore with the given JetStream context. It
// creates the necessary KV buckets if they don't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	s := &KVStore{}

	buckets := []struct {
		name string
		dst  *jetstream.KeyValue
	}{
		{BucketReports, &s.reports},
		{BucketTools, &s.tools},
		{BucketVendors, &s.vendors},
		{BucketRequests, &s.requests},
		{BucketControls, &s.controls},
		{BucketActivities, &s.activities},
	}
	for _, b := range buckets {
		kv, err := getOrCreateBucket(ctx, js, b.name)
		if err != nil {
			return nil, fmt.Errorf("create %s bucket: %w", strings.ToLower(b.name), err)
		}
		*b.dst = kv
	}

	return s, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Aegis %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}

func putJSON(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

func getJSON(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get record: %w", err)
	}
	if err := json.Unmarshal(entry.Value(), v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// listJSON loads every record in a bucket, skipping entries that fail
// to load or decode.
func listJSON[T any](ctx context.Context, kv jetstream.KeyValue) ([]*T, error) {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	records := make([]*T, 0, len(keys))
	for _, key := range keys {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec T
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// CreateReport stores a new report, assigning ID and timestamps.
func (s *KVStore) CreateReport(ctx context.Context, r *Report) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	return putJSON(ctx, s.reports, r.ID, r)
}

// GetReport retrieves a report by ID.
func (s *KVStore) GetReport(ctx context.Context, id string) (*Report, error) {
	var r Report
	if err := getJSON(ctx, s.reports, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReport overwrites an existing report.
func (s *KVStore) UpdateReport(ctx context.Context, r *Report) error {
	r.UpdatedAt = time.Now()
	return putJSON(ctx, s.reports, r.ID, r)
}

// ListReports returns all reports for an organization, newest first.
func (s *KVStore) ListReports(ctx context.Context, orgID string) ([]*Report, error) {
	all, err := listJSON[Report](ctx, s.reports)
	if err != nil {
		return nil, err
	}
	reports := filterOrg(all, orgID, func(r *Report) string { return r.OrgID })
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// CreateTool stores a new tool record.
func (s *KVStore) CreateTool(ctx context.Context, t *Tool) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.Status == "" {
		t.Status = ToolStatusPending
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	return putJSON(ctx, s.tools, t.ID, t)
}

// GetTool retrieves a tool by ID.
func (s *KVStore) GetTool(ctx context.Context, id string) (*Tool, error) {
	var t Tool
	if err := getJSON(ctx, s.tools, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetToolByName finds a tool by name within an organization. Name
// matching is case-insensitive.
func (s *KVStore) GetToolByName(ctx context.Context, orgID, name string) (*Tool, error) {
	all, err := listJSON[Tool](ctx, s.tools)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.OrgID == orgID && strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateTool overwrites an existing tool record.
func (s *KVStore) UpdateTool(ctx context.Context, t *Tool) error {
	t.UpdatedAt = time.Now()
	return putJSON(ctx, s.tools, t.ID, t)
}

// ListTools returns all tools for an organization.
func (s *KVStore) ListTools(ctx context.Context, orgID string) ([]*Tool, error) {
	all, err := listJSON[Tool](ctx, s.tools)
	if err != nil {
		return nil, err
	}
	return filterOrg(all, orgID, func(t *Tool) string { return t.OrgID }), nil
}

// UpsertVendor creates or updates a vendor keyed on name within the
// organization.
func (s *KVStore) UpsertVendor(ctx context.Context, v *Vendor) error {
	existing, err := s.GetVendorByName(ctx, v.OrgID, v.Name)
	if err != nil && err != ErrNotFound {
		return err
	}
	now := time.Now()
	if existing != nil {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		if v.ID == "" {
			v.ID = NewID()
		}
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	return putJSON(ctx, s.vendors, v.ID, v)
}

// GetVendorByName finds a vendor by name within an organization.
func (s *KVStore) GetVendorByName(ctx context.Context, orgID, name string) (*Vendor, error) {
	all, err := listJSON[Vendor](ctx, s.vendors)
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if v.OrgID == orgID && strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return nil, ErrNotFound
}

// ListVendors returns all vendors for an organization.
func (s *KVStore) ListVendors(ctx context.Context, orgID string) ([]*Vendor, error) {
	all, err := listJSON[Vendor](ctx, s.vendors)
	if err != nil {
		return nil, err
	}
	return filterOrg(all, orgID, func(v *Vendor) string { return v.OrgID }), nil
}

// CreateRequest stores a new tool adoption request.
func (s *KVStore) CreateRequest(ctx context.Context, r *Request) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	return putJSON(ctx, s.requests, r.ID, r)
}

// GetRequest retrieves a request by ID.
func (s *KVStore) GetRequest(ctx context.Context, id string) (*Request, error) {
	var r Request
	if err := getJSON(ctx, s.requests, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequest overwrites an existing request.
func (s *KVStore) UpdateRequest(ctx context.Context, r *Request) error {
	r.UpdatedAt = time.Now()
	return putJSON(ctx, s.requests, r.ID, r)
}

// ListRequests returns all requests for an organization.
func (s *KVStore) ListRequests(ctx context.Context, orgID string) ([]*Request, error) {
	all, err := listJSON[Request](ctx, s.requests)
	if err != nil {
		return nil, err
	}
	return filterOrg(all, orgID, func(r *Request) string { return r.OrgID }), nil
}

// UpsertControl creates or updates a control keyed on framework plus
// control reference within the organization.
func (s *KVStore) UpsertControl(ctx context.Context, c *Control) error {
	existing, err := s.GetControl(ctx, c.OrgID, c.Framework, c.ControlRef)
	if err != nil && err != ErrNotFound {
		return err
	}
	now := time.Now()
	if existing != nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		if c.ID == "" {
			c.ID = NewID()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return putJSON(ctx, s.controls, c.ID, c)
}

// GetControl finds a control by framework and control reference within
// an organization.
func (s *KVStore) GetControl(ctx context.Context, orgID, framework, controlRef string) (*Control, error) {
	all, err := listJSON[Control](ctx, s.controls)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.OrgID == orgID && c.Framework == framework && c.ControlRef == controlRef {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// ListControls returns all controls for an organization.
func (s *KVStore) ListControls(ctx context.Context, orgID string) ([]*Control, error) {
	all, err := listJSON[Control](ctx, s.controls)
	if err != nil {
		return nil, err
	}
	return filterOrg(all, orgID, func(c *Control) string { return c.OrgID }), nil
}

// ListControlsByFramework returns an organization's controls for one
// framework.
func (s *KVStore) ListControlsByFramework(ctx context.Context, orgID, framework string) ([]*Control, error) {
	all, err := s.ListControls(ctx, orgID)
	if err != nil {
		return nil, err
	}
	controls := make([]*Control, 0, len(all))
	for _, c := range all {
		if c.Framework == framework {
			controls = append(controls, c)
		}
	}
	return controls, nil
}

// AppendActivity stores a new audit log entry.
func (s *KVStore) AppendActivity(ctx context.Context, a *Activity) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	a.CreatedAt = time.Now()
	return putJSON(ctx, s.activities, a.ID, a)
}

// ListActivities returns an organization's most recent audit entries,
// newest first. A limit of 0 returns all.
func (s *KVStore) ListActivities(ctx context.Context, orgID string, limit int) ([]*Activity, error) {
	all, err := listJSON[Activity](ctx, s.activities)
	if err != nil {
		return nil, err
	}
	activities := filterOrg(all, orgID, func(a *Activity) string { return a.OrgID })
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

func filterOrg[T any](records []*T, orgID string, key func(*T) string) []*T {
	out := make([]*T, 0, len(records))
	for _, r := range records {
		if key(r) == orgID {
			out = append(out, r)
		}
	}
	return out
}
