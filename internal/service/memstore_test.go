package service_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskhub/internal/domain"
)

// memStore is an in-memory DataStore. InTx serializes transactions and
// restores a snapshot when fn fails, so tests can observe that rejected
// operations leave no partial writes.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	departments map[uuid.UUID]domain.Department
	projects    map[uuid.UUID]domain.Project
	members     map[uuid.UUID]map[uuid.UUID]struct{}
	tasks       map[uuid.UUID]domain.Task
	deleted     map[uuid.UUID]struct{}
	history     []domain.StateHistoryEntry
	users       map[uuid.UUID]domain.User
	audit       []domain.AuditEntry
	seq         int64

	// Failure injection.
	appendErr error
	auditErr  error

	txCount int
}

func newMemStore() *memStore {
	return &memStore{
		departments: make(map[uuid.UUID]domain.Department),
		projects:    make(map[uuid.UUID]domain.Project),
		members:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
		tasks:       make(map[uuid.UUID]domain.Task),
		deleted:     make(map[uuid.UUID]struct{}),
		users:       make(map[uuid.UUID]domain.User),
	}
}

type memSnapshot struct {
	departments map[uuid.UUID]domain.Department
	projects    map[uuid.UUID]domain.Project
	members     map[uuid.UUID]map[uuid.UUID]struct{}
	tasks       map[uuid.UUID]domain.Task
	deleted     map[uuid.UUID]struct{}
	history     []domain.StateHistoryEntry
	users       map[uuid.UUID]domain.User
	seq         int64
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make(map[uuid.UUID]map[uuid.UUID]struct{}, len(m.members))
	for k, v := range m.members {
		members[k] = maps.Clone(v)
	}
	return memSnapshot{
		departments: maps.Clone(m.departments),
		projects:    maps.Clone(m.projects),
		members:     members,
		tasks:       maps.Clone(m.tasks),
		deleted:     maps.Clone(m.deleted),
		history:     slices.Clone(m.history),
		users:       maps.Clone(m.users),
		seq:         m.seq,
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.departments = s.departments
	m.projects = s.projects
	m.members = s.members
	m.tasks = s.tasks
	m.deleted = s.deleted
	m.history = s.history
	m.users = s.users
	m.seq = s.seq
}

func (m *memStore) InTx(_ context.Context, fn func(tx domain.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.txCount++
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) Departments() domain.DepartmentRepository { return memDepartments{m} }
func (m *memStore) Projects() domain.ProjectRepository       { return memProjects{m} }
func (m *memStore) Tasks() domain.TaskRepository             { return memTasks{m} }
func (m *memStore) History() domain.StateHistoryRepository   { return memHistory{m} }
func (m *memStore) Users() domain.UserRepository             { return memUsers{m} }
func (m *memStore) Audit() domain.AuditRepository            { return memAudit{m} }

// ---------------------------------------------------------------------------
// Seeding and inspection helpers.
// ---------------------------------------------------------------------------

func (m *memStore) seedDepartment(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := domain.Department{ID: uuid.New(), Name: name}
	m.departments[d.ID] = d
	return d.ID
}

func (m *memStore) seedProject(departmentID uuid.UUID, name string) *domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := domain.Project{ID: uuid.New(), DepartmentID: departmentID, Name: name, Status: domain.ProjectStatusActive}
	m.projects[p.ID] = p
	return &p
}

func (m *memStore) seedUser(departmentID *uuid.UUID, roles ...domain.Role) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	u := domain.User{ID: id, DepartmentID: departmentID, Email: id.String() + "@example.com", Name: "user", Roles: roles}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) seedMember(projectID, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.members[projectID] == nil {
		m.members[projectID] = make(map[uuid.UUID]struct{})
	}
	m.members[projectID][userID] = struct{}{}
}

// seedTask stores a BACKLOG task without recording history.
func (m *memStore) seedTask(t *testing.T, p *domain.Project) *domain.Task {
	t.Helper()

	task := &domain.Task{
		ID:        uuid.New(),
		ProjectID: p.ID,
		Title:     "seeded",
		State:     domain.TaskStateBacklog,
		Priority:  domain.TaskPriorityMedium,
		Version:   1,
	}
	require.NoError(t, m.Tasks().Create(t.Context(), task))
	return task
}

func (m *memStore) historyFor(taskID uuid.UUID) []domain.StateHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StateHistoryEntry
	for _, e := range m.history {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) task(id uuid.UUID) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live(id)
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.audit))
	for _, e := range m.audit {
		out = append(out, e.Action)
	}
	return out
}

// ---------------------------------------------------------------------------
// Departments
// ---------------------------------------------------------------------------

type memDepartments struct{ m *memStore }

func (r memDepartments) Create(_ context.Context, d *domain.Department) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.departments[d.ID] = *d
	return nil
}

func (r memDepartments) GetByID(_ context.Context, id uuid.UUID) (*domain.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	d, ok := r.m.departments[id]
	if !ok {
		return nil, fmt.Errorf("memDepartments.GetByID: %w", domain.ErrNotFound)
	}
	return &d, nil
}

func (r memDepartments) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, d := range r.m.departments {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("memDepartments.GetByName: %w", domain.ErrNotFound)
}

func (r memDepartments) Update(_ context.Context, d *domain.Department) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.departments[d.ID]; !ok {
		return fmt.Errorf("memDepartments.Update: %w", domain.ErrNotFound)
	}
	r.m.departments[d.ID] = *d
	return nil
}

func (r memDepartments) List(context.Context) ([]*domain.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]*domain.Department, 0, len(r.m.departments))
	for _, d := range r.m.departments {
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memDepartments) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.departments[id]; !ok {
		return fmt.Errorf("memDepartments.Delete: %w", domain.ErrNotFound)
	}
	delete(r.m.departments, id)
	return nil
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

type memProjects struct{ m *memStore }

func (r memProjects) Create(_ context.Context, p *domain.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.projects[p.ID] = *p
	return nil
}

func (r memProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.projects[id]
	if !ok {
		return nil, fmt.Errorf("memProjects.GetByID: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (r memProjects) GetByName(_ context.Context, departmentID uuid.UUID, name string) (*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, p := range r.m.projects {
		if p.DepartmentID == departmentID && p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("memProjects.GetByName: %w", domain.ErrNotFound)
}

func (r memProjects) Update(_ context.Context, p *domain.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.projects[p.ID]; !ok {
		return fmt.Errorf("memProjects.Update: %w", domain.ErrNotFound)
	}
	r.m.projects[p.ID] = *p
	return nil
}

func (r memProjects) List(context.Context) ([]*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]*domain.Project, 0, len(r.m.projects))
	for _, p := range r.m.projects {
		out = append(out, &p)
	}
	return out, nil
}

func (r memProjects) ListByDepartment(_ context.Context, departmentID uuid.UUID) ([]*domain.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.Project
	for _, p := range r.m.projects {
		if p.DepartmentID == departmentID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r memProjects) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.projects[id]; !ok {
		return fmt.Errorf("memProjects.Delete: %w", domain.ErrNotFound)
	}
	// Soft-deleted tasks still reference the project (foreign key RESTRICT).
	for _, t := range r.m.tasks {
		if t.ProjectID == id {
			return fmt.Errorf("memProjects.Delete: project %s has task history: %w", id, domain.ErrConflict)
		}
	}
	delete(r.m.projects, id)
	delete(r.m.members, id)
	return nil
}

func (r memProjects) AddMember(_ context.Context, projectID, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.members[projectID] == nil {
		r.m.members[projectID] = make(map[uuid.UUID]struct{})
	}
	r.m.members[projectID][userID] = struct{}{}
	return nil
}

func (r memProjects) RemoveMember(_ context.Context, projectID, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.members[projectID][userID]; !ok {
		return fmt.Errorf("memProjects.RemoveMember: %w", domain.ErrNotFound)
	}
	delete(r.m.members[projectID], userID)
	return nil
}

func (r memProjects) IsMember(_ context.Context, projectID, userID uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, ok := r.m.members[projectID][userID]
	return ok, nil
}

func (r memProjects) ListMembers(_ context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]uuid.UUID, 0, len(r.m.members[projectID]))
	for id := range r.m.members[projectID] {
		out = append(out, id)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type memTasks struct{ m *memStore }

func (r memTasks) Create(_ context.Context, t *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.projects[t.ProjectID]
	if !ok {
		return fmt.Errorf("memTasks.Create: project: %w", domain.ErrNotFound)
	}
	t.DepartmentID = p.DepartmentID
	r.m.tasks[t.ID] = *t
	return nil
}

func (r memTasks) get(id uuid.UUID, caller string) (*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.live(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	t.DepartmentID = r.m.projects[t.ProjectID].DepartmentID
	return &t, nil
}

func (r memTasks) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.get(id, "memTasks.GetByID")
}

func (r memTasks) GetForUpdate(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.get(id, "memTasks.GetForUpdate")
}

func (r memTasks) list(keep func(domain.Task) bool) []*domain.Task {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.Task
	for id, t := range r.m.tasks {
		if _, gone := r.m.deleted[id]; gone {
			continue
		}
		if keep(t) {
			t.DepartmentID = r.m.projects[t.ProjectID].DepartmentID
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > domain.ListLimit {
		out = out[:domain.ListLimit]
	}
	return out
}

func (r memTasks) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	return r.list(func(t domain.Task) bool { return t.ProjectID == projectID }), nil
}

func (r memTasks) ListByAssignee(_ context.Context, assigneeID uuid.UUID, departmentID *uuid.UUID) ([]*domain.Task, error) {
	return r.list(func(t domain.Task) bool {
		if t.AssigneeID == nil || *t.AssigneeID != assigneeID {
			return false
		}
		return departmentID == nil || r.m.projects[t.ProjectID].DepartmentID == *departmentID
	}), nil
}

func (r memTasks) save(t *domain.Task, caller string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.live(t.ID)
	if !ok {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if stored.Version != t.Version {
		return fmt.Errorf("%s: %w", caller, domain.ErrConflict)
	}
	t.Version++
	r.m.tasks[t.ID] = *t
	return nil
}

func (r memTasks) Update(_ context.Context, t *domain.Task) error {
	return r.save(t, "memTasks.Update")
}

func (r memTasks) UpdateState(_ context.Context, t *domain.Task) error {
	return r.save(t, "memTasks.UpdateState")
}

func (r memTasks) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.live(id); !ok {
		return fmt.Errorf("memTasks.Delete: %w", domain.ErrNotFound)
	}
	r.m.deleted[id] = struct{}{}
	return nil
}

// live returns a task that exists and is not soft-deleted. Callers hold mu.
func (m *memStore) live(id uuid.UUID) (domain.Task, bool) {
	if _, gone := m.deleted[id]; gone {
		return domain.Task{}, false
	}
	t, ok := m.tasks[id]
	return t, ok
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

type memHistory struct{ m *memStore }

func (r memHistory) Append(_ context.Context, e *domain.StateHistoryEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.appendErr != nil {
		return r.m.appendErr
	}
	r.m.seq++
	e.Seq = r.m.seq
	r.m.history = append(r.m.history, *e)
	return nil
}

func (r memHistory) list(keep func(domain.StateHistoryEntry) bool) []*domain.StateHistoryEntry {
	return r.scoped(nil, keep)
}

// scoped filters by department before applying the limit, like the SQL
// queries do.
func (r memHistory) scoped(departmentID *uuid.UUID, keep func(domain.StateHistoryEntry) bool) []*domain.StateHistoryEntry {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.StateHistoryEntry
	for _, e := range r.m.history {
		if !keep(e) {
			continue
		}
		t := r.m.tasks[e.TaskID]
		e.DepartmentID = r.m.projects[t.ProjectID].DepartmentID
		if departmentID != nil && e.DepartmentID != *departmentID {
			continue
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ChangedAt.After(out[j].ChangedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if len(out) > domain.ListLimit {
		out = out[:domain.ListLimit]
	}
	return out
}

func (r memHistory) ListByTask(_ context.Context, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.list(func(e domain.StateHistoryEntry) bool { return e.TaskID == taskID }), nil
}

func (r memHistory) ListByChangedBy(_ context.Context, actorID uuid.UUID, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(departmentID, func(e domain.StateHistoryEntry) bool { return e.ChangedBy != nil && *e.ChangedBy == actorID }), nil
}

func (r memHistory) ListByOldState(_ context.Context, state domain.TaskState, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(departmentID, func(e domain.StateHistoryEntry) bool { return e.OldState != nil && *e.OldState == state }), nil
}

func (r memHistory) ListByNewState(_ context.Context, state domain.TaskState, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(departmentID, func(e domain.StateHistoryEntry) bool { return e.NewState == state }), nil
}

func (r memHistory) ListByTimeRange(_ context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(departmentID, func(e domain.StateHistoryEntry) bool {
		return !e.ChangedAt.Before(from) && !e.ChangedAt.After(to)
	}), nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, fmt.Errorf("memUsers.GetByID: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("memUsers.GetByEmail: %w", domain.ErrNotFound)
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[u.ID]; !ok {
		return fmt.Errorf("memUsers.Update: %w", domain.ErrNotFound)
	}
	r.m.users[u.ID] = *u
	return nil
}

func (r memUsers) List(context.Context) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]*domain.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		out = append(out, &u)
	}
	return out, nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[id]; !ok {
		return fmt.Errorf("memUsers.Delete: %w", domain.ErrNotFound)
	}
	delete(r.m.users, id)
	return nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type memAudit struct{ m *memStore }

func (r memAudit) Record(_ context.Context, e *domain.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.auditErr != nil {
		return r.m.auditErr
	}
	r.m.audit = append(r.m.audit, *e)
	return nil
}

func (r memAudit) List(_ context.Context, limit, offset int) ([]*domain.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.AuditEntry
	for i := offset; i < len(r.m.audit) && len(out) < limit; i++ {
		e := r.m.audit[i]
		out = append(out, &e)
	}
	return out, nil
}

func (r memAudit) ListByResource(_ context.Context, resource string, resourceID uuid.UUID) ([]*domain.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.AuditEntry
	for _, e := range r.m.audit {
		if e.Resource == resource && e.ResourceID == resourceID {
			out = append(out, &e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Side-effect recorders.
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BoardEvent
	err    error
}

func (p *recordingPublisher) PublishBoardEvent(_ context.Context, ev *domain.BoardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, *ev)
	return p.err
}

func (p *recordingPublisher) types() []domain.BoardEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.BoardEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sent == nil {
		n.sent = make(map[uuid.UUID][]string)
	}
	n.sent[userID] = append(n.sent[userID], message)
	return n.err
}

func (n *recordingNotifier) messages(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.sent[userID])
}

// stepClock returns a clock advancing one second per call.
func stepClock() func() time.Time {
	var (
		mu  sync.Mutex
		now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
