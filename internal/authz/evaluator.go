// Package authz is the role- and department-scoped authorization engine.
//
// Every rule is a pure function of (actor, resource). Rules are looked up
// from a fixed table keyed by Action; there is no policy language.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

type Action string

const (
	ActionManageDepartment Action = "manage department"
	ActionManageProject    Action = "manage project"
	ActionViewProject      Action = "view project"
	ActionManageTask       Action = "manage task"
	ActionViewTask         Action = "view task"
	ActionUpdateTaskState  Action = "update task state"
	ActionManageUser       Action = "manage user"
	ActionViewUser         Action = "view user"
)

type ResourceKind string

const (
	ResourceDepartment ResourceKind = "department"
	ResourceProject    ResourceKind = "project"
	ResourceTask       ResourceKind = "task"
	ResourceUser       ResourceKind = "user"
)

// Resource is the slice of a target entity the rules need. DepartmentID is
// set for projects and tasks (a task inherits its project's department);
// OwnerID is set for users.
type Resource struct {
	Kind         ResourceKind
	ID           uuid.UUID
	DepartmentID *uuid.UUID
	OwnerID      *uuid.UUID
}

func DepartmentResource(id uuid.UUID) Resource {
	return Resource{Kind: ResourceDepartment, ID: id, DepartmentID: &id}
}

func ProjectResource(p *domain.Project) Resource {
	dep := p.DepartmentID
	return Resource{Kind: ResourceProject, ID: p.ID, DepartmentID: &dep}
}

// NewProjectResource describes a project that does not exist yet.
func NewProjectResource(departmentID uuid.UUID) Resource {
	return Resource{Kind: ResourceProject, DepartmentID: &departmentID}
}

func TaskResource(t *domain.Task) Resource {
	dep := t.DepartmentID
	return Resource{Kind: ResourceTask, ID: t.ID, DepartmentID: &dep}
}

// NewTaskResource describes a task about to be created in the given project.
func NewTaskResource(p *domain.Project) Resource {
	dep := p.DepartmentID
	return Resource{Kind: ResourceTask, DepartmentID: &dep}
}

func UserResource(id uuid.UUID) Resource {
	return Resource{Kind: ResourceUser, ID: id, OwnerID: &id}
}

// Decision is the outcome of Evaluate. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

type rule func(actor domain.Actor, res Resource) Decision

var rules = map[Action]rule{ //nolint:gochecknoglobals // fixed policy table
	ActionManageDepartment: manageDepartment,
	ActionManageProject:    manageProject,
	ActionViewProject:      viewProject,
	ActionManageTask:       manageTask,
	ActionViewTask:         departmentScoped,
	ActionUpdateTaskState:  departmentScoped,
	ActionManageUser:       adminOrSelf,
	ActionViewUser:         adminOrSelf,
}

// Evaluate decides whether actor may perform action on res. Unknown actions
// are denied.
func Evaluate(actor domain.Actor, action Action, res Resource) Decision {
	r, ok := rules[action]
	if !ok {
		return deny("unknown action %q", action)
	}
	return r(actor, res)
}

// Authorize is Evaluate returning a *domain.PermissionError on deny.
func Authorize(actor domain.Actor, action Action, res Resource) error {
	d := Evaluate(actor, action, res)
	if d.Allowed {
		return nil
	}
	return &domain.PermissionError{
		Action:     string(action),
		Resource:   string(res.Kind),
		ResourceID: res.ID,
		Reason:     d.Reason,
	}
}

func manageDepartment(actor domain.Actor, _ Resource) Decision {
	if actor.HasRole(domain.RoleAdmin) {
		return allow()
	}
	return deny("ADMIN role required")
}

func manageProject(actor domain.Actor, res Resource) Decision {
	if actor.IsBypass() {
		return allow()
	}
	if !actor.HasRole(domain.RoleProjectManager) {
		return deny("PROJECT_MANAGER role required")
	}
	return sameDepartment(actor, res)
}

func viewProject(actor domain.Actor, _ Resource) Decision {
	if actor.IsBypass() || actor.HasRole(domain.RoleProjectManager) {
		return allow()
	}
	return deny("PROJECT_MANAGER role required")
}

// manageTask grants PROJECT_MANAGER and TEAM_LEADER within their department.
// TEAM_MEMBER carries no management rights of its own; an actor holding it
// next to a management role is judged by the management role.
func manageTask(actor domain.Actor, res Resource) Decision {
	if actor.IsBypass() {
		return allow()
	}
	if !actor.HasAnyRole(domain.RoleProjectManager, domain.RoleTeamLeader) {
		if actor.HasRole(domain.RoleTeamMember) {
			return deny("TEAM_MEMBER may not manage tasks")
		}
		return deny("PROJECT_MANAGER or TEAM_LEADER role required")
	}
	return sameDepartment(actor, res)
}

func departmentScoped(actor domain.Actor, res Resource) Decision {
	if actor.IsBypass() {
		return allow()
	}
	return sameDepartment(actor, res)
}

func adminOrSelf(actor domain.Actor, res Resource) Decision {
	if actor.HasRole(domain.RoleAdmin) {
		return allow()
	}
	if res.OwnerID != nil && *res.OwnerID == actor.ID {
		return allow()
	}
	return deny("only the user or an ADMIN may access this user")
}

func sameDepartment(actor domain.Actor, res Resource) Decision {
	if actor.DepartmentID == nil {
		return deny("actor has no department")
	}
	if res.DepartmentID == nil || !actor.InDepartment(*res.DepartmentID) {
		return deny("department mismatch")
	}
	return allow()
}

// ViewScope is the department filter matching ActionViewTask for list
// queries. ok is false when the actor can see no task at all; a nil
// departmentID with ok means every department.
func ViewScope(actor domain.Actor) (departmentID *uuid.UUID, ok bool) {
	if actor.IsBypass() {
		return nil, true
	}
	if actor.DepartmentID == nil {
		return nil, false
	}
	dep := *actor.DepartmentID
	return &dep, true
}
