package domain

// ListLimit caps the rows returned by the unbounded list queries.
const ListLimit = 1000

// Repositories groups the repository accessors shared by the postgres store
// and its transaction-scoped view.
type Repositories interface {
	Departments() DepartmentRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	History() StateHistoryRepository
	Users() UserRepository
	Audit() AuditRepository
}
