package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/repairdesk/internal/intake"
	"github.com/garnizeh/repairdesk/internal/share"
	"github.com/garnizeh/repairdesk/internal/tracker"
)

func SetupRoutes(version, buildTime string, ctrl *tracker.Controller, svc *intake.Service, enqueue func(r *http.Request, payload share.DocumentPayload)) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	jobsHandler := NewJobsHandler(ctrl)
	intakeHandler := NewIntakeHandler(svc, ctrl, enqueue)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// API v1
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	apiV1.HandleFunc("/jobs/{id}/status", jobsHandler.UpdateStatus).Methods("PUT")
	apiV1.HandleFunc("/statuses", jobsHandler.ListStatuses).Methods("GET")
	apiV1.HandleFunc("/intake", intakeHandler.Submit).Methods("POST")

	return r
}
