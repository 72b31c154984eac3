package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes wires exactly the §6 RPC surface onto the router.
func (s *Server) setupRoutes() {
	s.router.Route("/session", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/message", s.sendMessage)
			r.Get("/message", s.listMessages)
			r.Patch("/bypass", s.updateSessionBypass)
			r.Get("/events", s.subscribeEvents)

			r.Route("/branch", func(r chi.Router) {
				r.Get("/", s.listBranches)
				r.Post("/", s.createBranch)
				r.Get("/tree", s.getBranchTree)
				r.Post("/switch", s.switchBranch)
				r.Post("/fork", s.forkBranch)

				r.Route("/{branchID}", func(r chi.Router) {
					r.Get("/state", s.getSessionState)
					r.Post("/compact", s.compactBranch)
				})
			})
		})
	})

	s.router.Post("/steer", s.steer)
	s.router.Post("/respond/questions", s.respondQuestions)
	s.router.Post("/respond/permission", s.respondPermission)
	s.router.Post("/respond/plan", s.respondPlan)

	s.router.Get("/models", s.listModels)
}
