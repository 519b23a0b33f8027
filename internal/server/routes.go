package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskhub/internal/api/v1"
	"github.com/gosuda/taskhub/internal/api/ws"
)

func registerAuthRoutes(api huma.API, deps Deps) {
	v1.RegisterAuthRoutes(api, deps.Auth)
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterDepartmentRoutes(api, deps.Departments)
	v1.RegisterProjectRoutes(api, deps.Projects)
	v1.RegisterTaskRoutes(api, deps.Tasks)
	v1.RegisterBoardRoutes(api, deps.Tasks)
	v1.RegisterHistoryRoutes(api, deps.History)
	v1.RegisterUserRoutes(api, deps.Users)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board/{projectID}", hub.ServeBoard)
	r.Get("/department/{departmentID}", hub.ServeDepartment)
}
