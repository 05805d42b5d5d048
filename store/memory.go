package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by single-node
// runs without NATS.
type MemoryStore struct {
	mu         sync.RWMutex
	reports    map[string]*Report
	tools      map[string]*Tool
	vendors    map[string]*Vendor
	requests   map[string]*Request
	controls   map[string]*Control
	activities []*Activity
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:  make(map[string]*Report),
		tools:    make(map[string]*Tool),
		vendors:  make(map[string]*Vendor),
		requests: make(map[string]*Request),
		controls: make(map[string]*Control),
	}
}

func (s *MemoryStore) CreateReport(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateReport(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now()
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ListReports(_ context.Context, orgID string) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Report
	for _, r := range s.reports {
		if r.OrgID == orgID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateTool(_ context.Context, t *Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.Status == "" {
		t.Status = ToolStatusPending
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.tools[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTool(_ context.Context, id string) (*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetToolByName(_ context.Context, orgID, name string) (*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tools {
		if t.OrgID == orgID && strings.EqualFold(t.Name, name) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateTool(_ context.Context, t *Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	s.tools[t.ID] = &cp
	return nil
}

func (s *MemoryStore) ListTools(_ context.Context, orgID string) ([]*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Tool
	for _, t := range s.tools {
		if t.OrgID == orgID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpsertVendor(_ context.Context, v *Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, existing := range s.vendors {
		if existing.OrgID == v.OrgID && strings.EqualFold(existing.Name, v.Name) {
			v.ID = existing.ID
			v.CreatedAt = existing.CreatedAt
			v.UpdatedAt = now
			cp := *v
			s.vendors[v.ID] = &cp
			return nil
		}
	}
	if v.ID == "" {
		v.ID = NewID()
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	cp := *v
	s.vendors[v.ID] = &cp
	return nil
}

func (s *MemoryStore) GetVendorByName(_ context.Context, orgID, name string) (*Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vendors {
		if v.OrgID == orgID && strings.EqualFold(v.Name, name) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListVendors(_ context.Context, orgID string) ([]*Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vendor
	for _, v := range s.vendors {
		if v.OrgID == orgID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateRequest(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateRequest(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now()
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ListRequests(_ context.Context, orgID string) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, r := range s.requests {
		if r.OrgID == orgID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpsertControl(_ context.Context, c *Control) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, existing := range s.controls {
		if existing.OrgID == c.OrgID && existing.Framework == c.Framework && existing.ControlRef == c.ControlRef {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			c.UpdatedAt = now
			cp := *c
			s.controls[c.ID] = &cp
			return nil
		}
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	s.controls[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetControl(_ context.Context, orgID, framework, controlRef string) (*Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.controls {
		if c.OrgID == orgID && c.Framework == framework && c.ControlRef == controlRef {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListControls(_ context.Context, orgID string) ([]*Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Control
	for _, c := range s.controls {
		if c.OrgID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Framework != out[j].Framework {
			return out[i].Framework < out[j].Framework
		}
		return out[i].ControlRef < out[j].ControlRef
	})
	return out, nil
}

func (s *MemoryStore) ListControlsByFramework(ctx context.Context, orgID, framework string) ([]*Control, error) {
	all, err := s.ListControls(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]*Control, 0, len(all))
	for _, c := range all {
		if c.Framework == framework {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendActivity(_ context.Context, a *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = NewID()
	}
	a.CreatedAt = time.Now()
	cp := *a
	s.activities = append(s.activities, &cp)
	return nil
}

func (s *MemoryStore) ListActivities(_ context.Context, orgID string, limit int) ([]*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Activity
	for _, a := range s.activities {
		if a.OrgID == orgID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
