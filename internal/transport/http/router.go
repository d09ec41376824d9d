package http

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/domain"
)

// RouterConfig bundles what NewRouter wires together.
type RouterConfig struct {
	API      *APIHandler
	Camera   *CameraHandler
	Tokens   TokenParser
	Gatherer prometheus.Gatherer
	Log      logrus.FieldLogger
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	log := cfg.Log
	student := func(h http.HandlerFunc) http.HandlerFunc { return requireAuth(cfg.Tokens, domain.RoleStudent, log, h) }
	professor := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(cfg.Tokens, domain.RoleProfessor, log, h)
	}
	anyone := func(h http.HandlerFunc) http.HandlerFunc { return requireAuth(cfg.Tokens, "", log, h) }

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/otp", cfg.API.RequestOTP).Methods("POST")
	api.HandleFunc("/register", cfg.API.Register).Methods("POST")
	api.HandleFunc("/login", cfg.API.Login).Methods("POST")
	api.HandleFunc("/password", anyone(cfg.API.ChangePassword)).Methods("POST")

	api.HandleFunc("/quiz/begin", student(cfg.API.Begin)).Methods("POST")
	api.HandleFunc("/quiz/answers", student(cfg.API.RecordAnswer)).Methods("PUT")
	api.HandleFunc("/quiz/remaining", student(cfg.API.Remaining)).Methods("GET")
	api.HandleFunc("/quiz/submit", student(cfg.API.Submit)).Methods("POST")

	api.HandleFunc("/professor/active", professor(cfg.API.ActiveTakers)).Methods("GET")
	api.HandleFunc("/professor/results", professor(cfg.API.Results)).Methods("GET")
	api.HandleFunc("/professor/results.csv", professor(cfg.API.ResultsCSV)).Methods("GET")

	if cfg.Camera != nil {
		r.HandleFunc("/ws/camera", student(cfg.Camera.ServeWS)).Methods("GET")
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHeaders := handlers.AllowedHeaders([]string{"Authorization", "Content-Type"})
	corsOrigins := handlers.AllowedOrigins(origins)
	corsMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "HEAD", "OPTIONS"})

	var h http.Handler = handlers.CORS(corsHeaders, corsOrigins, corsMethods)(r)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(log))(h)
}
