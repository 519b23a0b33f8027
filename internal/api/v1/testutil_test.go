package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/server/middleware"
	"github.com/gosuda/taskhub/internal/service"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated actor for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(actor domain.Actor) context.Context {
	return middleware.WithActor(context.Background(), actor)
}

func memberActor(dept uuid.UUID) domain.Actor {
	return domain.NewActor(uuid.New(), []domain.Role{domain.RoleTeamMember}, &dept)
}

func adminActor() domain.Actor {
	return domain.NewActor(uuid.New(), []domain.Role{domain.RoleAdmin}, nil)
}

func forbidden() error {
	return &domain.PermissionError{Action: "test", Reason: "denied"}
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc   func(ctx context.Context, email, password string) (string, string, error)
	refreshFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock DepartmentService
// ---------------------------------------------------------------------------

type mockDepartmentService struct {
	createFunc func(ctx context.Context, actor domain.Actor, name, description string) (*domain.Department, error)
	getFunc    func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Department, error)
	listFunc   func(ctx context.Context, actor domain.Actor) ([]*domain.Department, error)
	updateFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description *string) (*domain.Department, error)
	deleteFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

func (m *mockDepartmentService) Create(ctx context.Context, actor domain.Actor, name, description string) (*domain.Department, error) {
	return m.createFunc(ctx, actor, name, description)
}

func (m *mockDepartmentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Department, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockDepartmentService) List(ctx context.Context, actor domain.Actor) ([]*domain.Department, error) {
	return m.listFunc(ctx, actor)
}

func (m *mockDepartmentService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description *string) (*domain.Department, error) {
	return m.updateFunc(ctx, actor, id, name, description)
}

func (m *mockDepartmentService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return m.deleteFunc(ctx, actor, id)
}

// ---------------------------------------------------------------------------
// Mock ProjectService
// ---------------------------------------------------------------------------

type mockProjectService struct {
	createFunc       func(ctx context.Context, actor domain.Actor, in service.CreateProjectInput) (*domain.Project, error)
	getFunc          func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Project, error)
	listFunc         func(ctx context.Context, actor domain.Actor, departmentID *uuid.UUID) ([]*domain.Project, error)
	updateFunc       func(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateProjectInput) (*domain.Project, error)
	changeStatusFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error)
	deleteFunc       func(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	addMemberFunc    func(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error
	removeMemberFunc func(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error
	listMembersFunc  func(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]uuid.UUID, error)
}

func (m *mockProjectService) Create(ctx context.Context, actor domain.Actor, in service.CreateProjectInput) (*domain.Project, error) {
	return m.createFunc(ctx, actor, in)
}

func (m *mockProjectService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Project, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockProjectService) List(ctx context.Context, actor domain.Actor, departmentID *uuid.UUID) ([]*domain.Project, error) {
	return m.listFunc(ctx, actor, departmentID)
}

func (m *mockProjectService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateProjectInput) (*domain.Project, error) {
	return m.updateFunc(ctx, actor, id, in)
}

func (m *mockProjectService) ChangeStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	return m.changeStatusFunc(ctx, actor, id, status)
}

func (m *mockProjectService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return m.deleteFunc(ctx, actor, id)
}

func (m *mockProjectService) AddMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error {
	return m.addMemberFunc(ctx, actor, projectID, userID)
}

func (m *mockProjectService) RemoveMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error {
	return m.removeMemberFunc(ctx, actor, projectID, userID)
}

func (m *mockProjectService) ListMembers(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]uuid.UUID, error) {
	return m.listMembersFunc(ctx, actor, projectID)
}

// ---------------------------------------------------------------------------
// Mock TaskService (also serves HistoryService)
// ---------------------------------------------------------------------------

type mockTaskService struct {
	createFunc            func(ctx context.Context, actor domain.Actor, in service.CreateTaskInput) (*domain.Task, error)
	getFunc               func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error)
	listByProjectFunc     func(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]*domain.Task, error)
	listByAssigneeFunc    func(ctx context.Context, actor domain.Actor, assigneeID uuid.UUID) ([]*domain.Task, error)
	boardFunc             func(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*domain.Project, []*domain.Task, error)
	updateFunc            func(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateTaskInput) (*domain.Task, error)
	deleteFunc            func(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	assignFunc            func(ctx context.Context, actor domain.Actor, id, assigneeID uuid.UUID, version *int64) (*domain.Task, error)
	unassignFunc          func(ctx context.Context, actor domain.Actor, id uuid.UUID, version *int64) (*domain.Task, error)
	changeStateFunc       func(ctx context.Context, actor domain.Actor, id uuid.UUID, next domain.TaskState, reason string, version *int64) (*domain.Task, error)
	transitionsFunc       func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, []domain.TaskState, error)
	historyFunc           func(ctx context.Context, actor domain.Actor, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error)
	historyByActorFunc    func(ctx context.Context, actor domain.Actor, changedBy uuid.UUID) ([]*domain.StateHistoryEntry, error)
	historyByOldStateFunc func(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error)
	historyByNewStateFunc func(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error)
	historyInRangeFunc    func(ctx context.Context, actor domain.Actor, from, to time.Time) ([]*domain.StateHistoryEntry, error)
}

func (m *mockTaskService) Create(ctx context.Context, actor domain.Actor, in service.CreateTaskInput) (*domain.Task, error) {
	return m.createFunc(ctx, actor, in)
}

func (m *mockTaskService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockTaskService) ListByProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]*domain.Task, error) {
	return m.listByProjectFunc(ctx, actor, projectID)
}

func (m *mockTaskService) ListByAssignee(ctx context.Context, actor domain.Actor, assigneeID uuid.UUID) ([]*domain.Task, error) {
	return m.listByAssigneeFunc(ctx, actor, assigneeID)
}

func (m *mockTaskService) Board(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*domain.Project, []*domain.Task, error) {
	return m.boardFunc(ctx, actor, projectID)
}

func (m *mockTaskService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateTaskInput) (*domain.Task, error) {
	return m.updateFunc(ctx, actor, id, in)
}

func (m *mockTaskService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return m.deleteFunc(ctx, actor, id)
}

func (m *mockTaskService) Assign(ctx context.Context, actor domain.Actor, id, assigneeID uuid.UUID, version *int64) (*domain.Task, error) {
	return m.assignFunc(ctx, actor, id, assigneeID, version)
}

func (m *mockTaskService) Unassign(ctx context.Context, actor domain.Actor, id uuid.UUID, version *int64) (*domain.Task, error) {
	return m.unassignFunc(ctx, actor, id, version)
}

func (m *mockTaskService) ChangeState(ctx context.Context, actor domain.Actor, id uuid.UUID, next domain.TaskState, reason string, version *int64) (*domain.Task, error) {
	return m.changeStateFunc(ctx, actor, id, next, reason, version)
}

func (m *mockTaskService) Transitions(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, []domain.TaskState, error) {
	return m.transitionsFunc(ctx, actor, id)
}

func (m *mockTaskService) History(ctx context.Context, actor domain.Actor, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return m.historyFunc(ctx, actor, taskID)
}

func (m *mockTaskService) HistoryByActor(ctx context.Context, actor domain.Actor, changedBy uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return m.historyByActorFunc(ctx, actor, changedBy)
}

func (m *mockTaskService) HistoryByOldState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error) {
	return m.historyByOldStateFunc(ctx, actor, state)
}

func (m *mockTaskService) HistoryByNewState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error) {
	return m.historyByNewStateFunc(ctx, actor, state)
}

func (m *mockTaskService) HistoryInRange(ctx context.Context, actor domain.Actor, from, to time.Time) ([]*domain.StateHistoryEntry, error) {
	return m.historyInRangeFunc(ctx, actor, from, to)
}

// ---------------------------------------------------------------------------
// Mock UserService
// ---------------------------------------------------------------------------

type mockUserService struct {
	createFunc func(ctx context.Context, actor domain.Actor, in service.CreateUserInput) (*domain.User, error)
	getFunc    func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error)
	listFunc   func(ctx context.Context, actor domain.Actor) ([]*domain.User, error)
	updateFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateUserInput) (*domain.User, error)
	deleteFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

func (m *mockUserService) Create(ctx context.Context, actor domain.Actor, in service.CreateUserInput) (*domain.User, error) {
	return m.createFunc(ctx, actor, in)
}

func (m *mockUserService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockUserService) List(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	return m.listFunc(ctx, actor)
}

func (m *mockUserService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateUserInput) (*domain.User, error) {
	return m.updateFunc(ctx, actor, id, in)
}

func (m *mockUserService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return m.deleteFunc(ctx, actor, id)
}
