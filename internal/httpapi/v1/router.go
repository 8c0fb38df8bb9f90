// Package v1 wires the HTTP surface of the school finance service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinoosan/schoolfin/internal/billing"
	"github.com/tinoosan/schoolfin/internal/service/balance"
	"github.com/tinoosan/schoolfin/internal/service/contract"
	"github.com/tinoosan/schoolfin/internal/service/obligation"
	"github.com/tinoosan/schoolfin/internal/service/registry"
	"github.com/tinoosan/schoolfin/internal/service/settlement"
)

// Options carries the HTTP layer configuration.
type Options struct {
	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string
	Billing        billing.Config
}

// Server wires handlers and middleware using Chi.
type Server struct {
	registry    registry.Service
	balance     balance.Service
	obligations obligation.Service
	settlement  settlement.Service
	contracts   contract.Service
	ready       ReadyChecker
	secret      []byte
	issuer      string
	log         *slog.Logger
	rt          *chi.Mux
}

// New builds the services over store and mounts the routes.
func New(store Store, opts Options, logger *slog.Logger) *Server {
	reg := registry.New(store, store)
	settle := settlement.New(store, reg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(opts.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		registry:    reg,
		balance:     balance.New(store),
		obligations: obligation.New(store, store, reg),
		settlement:  settle,
		contracts:   contract.New(store, reg, settle, billing.NewIssuer(opts.Billing)),
		ready:       store,
		secret:      []byte(opts.JWTSecret),
		issuer:      opts.JWTIssuer,
		log:         logger,
		rt:          r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func allowedOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Health and metrics (unversioned, unauthenticated)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Route("/v1", func(r chi.Router) {
		r.Get("/dictionary/{name}", s.getDictionary)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			// Registries
			r.With(requireJSON, s.validatePostAccount()).Post("/accounts", s.postAccount)
			r.Get("/accounts", s.listAccounts)
			r.Get("/accounts/{id}/balance", s.getAccountBalance)
			r.Get("/accounts/{id}/movements", s.listAccountMovements)
			r.With(requireJSON, s.validatePostCounterparty()).Post("/counterparties", s.postCounterparty)
			r.Get("/counterparties", s.listCounterparties)
			r.With(requireJSON, s.validatePostCategory()).Post("/categories", s.postCategory)
			r.Get("/categories", s.listCategories)

			// Obligations and settlement
			r.With(requireJSON, s.validatePostPayable()).Post("/payables", s.postPayable)
			r.Get("/payables", s.listPayables)
			r.With(requireJSON, s.validateSettle()).Put("/payables/{id}/pay", s.payPayable)
			r.With(requireJSON, s.validatePostReceivable()).Post("/receivables", s.postReceivable)
			r.Get("/receivables", s.listReceivables)
			r.With(requireJSON, s.validateSettle()).Put("/receivables/{id}/receive", s.receiveReceivable)
			r.With(s.validateStatement()).Get("/payers/{person_id}/statement", s.getStatement)
			r.With(requireJSON, s.validatePostTransfer()).Post("/transfers", s.postTransfer)
			r.Get("/transfers", s.listTransfers)

			// Contracts
			r.With(requireJSON, s.validatePostContract()).Post("/contracts", s.postContract)
			r.Get("/contracts", s.listContracts)
			r.Get("/contracts/{id}", s.getContract)
			r.Post("/contracts/{id}/generate-boletos", s.generateInstruments)
			r.Post("/contracts/{id}/send-boletos-email", s.sendNotifications)
			r.Get("/contracts/{id}/email-logs", s.listEmailLogs)
			r.With(requireJSON, s.validatePayInstallment()).Put("/contracts/{id}/installments/{installment_id}/pay", s.payInstallment)
			r.Get("/contract-template", s.getTemplate)
			r.With(requireJSON, s.validatePutTemplate()).Put("/contract-template", s.putTemplate)
		})
	})
}
