package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/plant-doctor/internal/intake"
	"github.com/kozaktomas/plant-doctor/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	compareHandler := handlers.NewCompareHandler(s.comparator, s.logger)
	clustersHandler := handlers.NewClustersHandler(s.config.Cluster.DestDir, s.logger)
	runsHandler := handlers.NewRunsHandler(s.logger)
	submissionsHandler := handlers.NewSubmissionsHandler(
		intake.New(s.config.Cluster.SourceDir, s.config.Intake, s.logger), s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Clustering
		r.Post("/compare", compareHandler.Compare)
		r.Get("/clusters", clustersHandler.List)

		// History
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)

		// Classifier intake
		r.Post("/submissions", submissionsHandler.Submit)
	})
}
