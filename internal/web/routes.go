package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/phantomlab/facetriage/internal/web/handlers"
	"github.com/phantomlab/facetriage/internal/workspace"
)

func (s *Server) setupRoutes(ws *workspace.Workspace) {
	imagesHandler := handlers.NewImagesHandler(ws)
	groupsHandler := handlers.NewGroupsHandler(ws)
	mergeHandler := handlers.NewMergeHandler(ws)
	projectHandler := handlers.NewProjectHandler(ws)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Images
		r.Get("/images", imagesHandler.List)
		r.Post("/images", imagesHandler.Upload)
		r.Get("/images/{id}", imagesHandler.Get)
		r.Delete("/images/{id}", imagesHandler.Delete)

		// Groups
		r.Get("/groups", groupsHandler.List)
		r.Post("/groups/recalculate", groupsHandler.Recalculate)
		r.Delete("/groups", groupsHandler.DeleteAll)
		r.Put("/groups/{id}", groupsHandler.Rename)
		r.Put("/groups/{id}/main-face", groupsHandler.SetMainFace)
		r.Post("/groups/combine", groupsHandler.Combine)

		// Faces
		r.Put("/faces/{id}/group", groupsHandler.MoveFace)
		r.Delete("/faces/{id}/group", groupsHandler.RemoveFaceFromGroup)
		r.Get("/faces/{id}/similar", groupsHandler.SimilarFaces)

		// Merge wizard
		r.Get("/merge/candidates", mergeHandler.Candidates)
		r.Post("/merge/decision", mergeHandler.Decide)

		// Project
		r.Get("/project/progress", projectHandler.Progress)
		r.Post("/project/save", projectHandler.Save)
	})
}
