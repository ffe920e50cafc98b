package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/pkg/clock"
	"github.com/okian/timeclock/pkg/logger"
)

// DriverMemory is the in-process store.
const DriverMemory = "memory"

// MemoryStore keeps everything in process memory. Appends are serialized
// per (organization, worker) by a keyed mutex; all other state is guarded
// by a single RWMutex.
type MemoryStore struct {
	settings

	mu        sync.RWMutex
	events    []model.ClockEvent // insertion order
	shifts    map[string][]model.ScheduledShift
	orgs      map[string]model.Organization
	members   map[string]map[string]model.Member // org -> worker -> member
	workers   map[string]model.Worker
	incidents map[string]model.Incident

	appendLocks sync.Map // org|worker -> *sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		settings:  defaultSettings(opts),
		shifts:    make(map[string][]model.ScheduledShift),
		orgs:      make(map[string]model.Organization),
		members:   make(map[string]map[string]model.Member),
		workers:   make(map[string]model.Worker),
		incidents: make(map[string]model.Incident),
	}
	return s
}

func defaultSettings(opts []Option) settings {
	st := settings{
		clock:        clock.Real(),
		newID:        uuid.NewString,
		logger:       logger.Nop(),
		maxOpenConns: 10,
	}
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

func scopeKey(organizationID, workerID string) string {
	return organizationID + "|" + workerID
}

// Driver implements Store.
func (s *MemoryStore) Driver() string { return DriverMemory }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListEvents(ctx context.Context, q EventQuery) ([]model.ClockEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterEvents(q), nil
}

// filterEvents must be called with s.mu held.
func (s *MemoryStore) filterEvents(q EventQuery) []model.ClockEvent {
	out := make([]model.ClockEvent, 0)
	for _, e := range s.events {
		if q.OrganizationID != "" && e.OrganizationID != q.OrganizationID {
			continue
		}
		if q.WorkerID != "" && e.WorkerID != q.WorkerID {
			continue
		}
		if q.From != nil && e.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Timestamp.After(*q.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev model.ClockEvent, guard Guard) (model.ClockEvent, error) {
	if ev.OrganizationID == "" || ev.WorkerID == "" {
		return model.ClockEvent{}, fmt.Errorf("append event: %w: organization and worker are required", ErrInvalidInput)
	}

	v, _ := s.appendLocks.LoadOrStore(scopeKey(ev.OrganizationID, ev.WorkerID), &sync.Mutex{})
	lock := v.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return model.ClockEvent{}, err
	}

	if guard != nil {
		s.mu.RLock()
		history := s.filterEvents(EventQuery{OrganizationID: ev.OrganizationID, WorkerID: ev.WorkerID})
		s.mu.RUnlock()

		var last *model.ClockEvent
		if n := len(history); n > 0 {
			last = &history[n-1]
		}
		if err := guard(last); err != nil {
			return model.ClockEvent{}, err
		}
	}

	ev.ID = s.newID()
	ev.CreatedAt = s.clock.Now().UTC()

	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return ev, nil
}

func (s *MemoryStore) ListActiveShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	all, err := s.ListShifts(ctx, workerID, organizationID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, sh := range all {
		if sh.IsActive {
			active = append(active, sh)
		}
	}
	return active, nil
}

func (s *MemoryStore) ListShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.shifts[scopeKey(organizationID, workerID)]
	out := make([]model.ScheduledShift, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) ReplaceShifts(ctx context.Context, workerID, organizationID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workerID == "" || organizationID == "" {
		return nil, fmt.Errorf("replace shifts: %w: organization and worker are required", ErrInvalidInput)
	}
	now := s.clock.Now().UTC()
	out := make([]model.ScheduledShift, len(shifts))
	for i, sh := range shifts {
		sh.ID = s.newID()
		sh.WorkerID = workerID
		sh.OrganizationID = organizationID
		sh.CreatedAt = now
		out[i] = sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]model.ScheduledShift, len(out))
	copy(stored, out)
	s.shifts[scopeKey(organizationID, workerID)] = stored
	return out, nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (model.Organization, error) {
	if err := ctx.Err(); err != nil {
		return model.Organization{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return model.Organization{}, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	return org, nil
}

func (s *MemoryStore) SaveOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if err := ctx.Err(); err != nil {
		return model.Organization{}, err
	}
	if org.ID == "" {
		org.ID = s.newID()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.clock.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = org
	return org, nil
}

func (s *MemoryStore) DeleteOrganization(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	delete(s.orgs, id)
	delete(s.members, id)
	for k := range s.shifts {
		if strings.HasPrefix(k, id+"|") {
			delete(s.shifts, k)
		}
	}
	s.events = dropEvents(s.events, func(e model.ClockEvent) bool { return e.OrganizationID == id })
	for k, inc := range s.incidents {
		if inc.OrganizationID == id {
			delete(s.incidents, k)
		}
	}
	return nil
}

func (s *MemoryStore) ListOrganizationsFor(ctx context.Context, workerID string) ([]model.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Organization{}
	for orgID, ms := range s.members {
		if _, ok := ms[workerID]; !ok {
			continue
		}
		if org, ok := s.orgs[orgID]; ok {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListMembers(ctx context.Context, organizationID string) ([]model.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Member, 0, len(s.members[organizationID]))
	for _, m := range s.members[organizationID] {
		out = append(out, m)
	}
	sortMembers(out)
	return out, nil
}

func sortMembers(ms []model.Member) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].WorkerID < ms[j].WorkerID
	})
}

func (s *MemoryStore) GetMember(ctx context.Context, organizationID, workerID string) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[organizationID][workerID]
	if !ok {
		return model.Member{}, fmt.Errorf("member %s/%s: %w", organizationID, workerID, ErrNotFound)
	}
	return m, nil
}

func (s *MemoryStore) SaveMember(ctx context.Context, m model.Member) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[m.OrganizationID]; !ok {
		return model.Member{}, fmt.Errorf("organization %s: %w", m.OrganizationID, ErrNotFound)
	}
	if _, ok := s.workers[m.WorkerID]; !ok {
		return model.Member{}, fmt.Errorf("worker %s: %w", m.WorkerID, ErrNotFound)
	}
	if prev, ok := s.members[m.OrganizationID][m.WorkerID]; ok {
		m.CreatedAt = prev.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = s.clock.Now().UTC()
	}
	if s.members[m.OrganizationID] == nil {
		s.members[m.OrganizationID] = make(map[string]model.Member)
	}
	s.members[m.OrganizationID][m.WorkerID] = m
	return m, nil
}

func (s *MemoryStore) GetWorker(ctx context.Context, id string) (model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return model.Worker{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[id]
	if !ok {
		return model.Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	return w, nil
}

func (s *MemoryStore) SaveWorker(ctx context.Context, w model.Worker) (model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return model.Worker{}, err
	}
	if w.ID == "" {
		w.ID = s.newID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.clock.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[w.ID] = w
	return w, nil
}

func (s *MemoryStore) DeleteWorker(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workers[id]; !ok {
		return fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	delete(s.workers, id)
	for _, byWorker := range s.members {
		delete(byWorker, id)
	}
	for k := range s.shifts {
		if strings.HasSuffix(k, "|"+id) {
			delete(s.shifts, k)
		}
	}
	s.events = dropEvents(s.events, func(e model.ClockEvent) bool { return e.WorkerID == id })
	for k, inc := range s.incidents {
		if inc.WorkerID == id {
			delete(s.incidents, k)
		}
	}
	return nil
}

func dropEvents(events []model.ClockEvent, drop func(model.ClockEvent) bool) []model.ClockEvent {
	kept := events[:0]
	for _, e := range events {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func (s *MemoryStore) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return model.Incident{}, err
	}
	inc.ID = s.newID()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = s.clock.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[inc.ID] = inc
	return inc, nil
}

func (s *MemoryStore) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return model.Incident{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return model.Incident{}, fmt.Errorf("incident %s: %w", id, ErrNotFound)
	}
	return inc, nil
}

func (s *MemoryStore) ListIncidents(ctx context.Context, f IncidentFilter) ([]model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Incident, 0)
	for _, inc := range s.incidents {
		if f.OrganizationID != "" && inc.OrganizationID != f.OrganizationID {
			continue
		}
		if f.WorkerID != "" && inc.WorkerID != f.WorkerID {
			continue
		}
		if f.Status != "" && inc.Status != f.Status {
			continue
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return model.Incident{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; !ok {
		return model.Incident{}, fmt.Errorf("incident %s: %w", inc.ID, ErrNotFound)
	}
	s.incidents[inc.ID] = inc
	return inc, nil
}
