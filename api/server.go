/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:   Unique ID per request for tracing
  2. Logger:      Request logging
  3. Recoverer:   Panic recovery (500 instead of crash)
  4. CORS:        Cross-origin requests for frontend
  5. RequireAuth: Token check on everything except login and registration

ROUTE GROUPS (under /api/v1):
  /auth                                     Login (public)
  /users                                    Registration (public POST),
                                            listing and /me (authenticated)
  /companies/*                              Company management
  /companies/{id}/departments/*             Departments within a company
  .../departments/{id}/budgets/*            Budget periods
  .../departments/{id}/transactions/*       Budget transactions
  .../departments/{id}/expenses/*           Expenses

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: RequireAuth and Login
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public surface
		r.Get("/", h.Health)
		r.Post("/auth", h.Login)
		r.Post("/users", h.RegisterUser)

		// Authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			// Registered directly rather than via Route: mounting a
			// sub-router at /users would shadow the public POST /users
			// above with the group's auth middleware.
			r.Get("/users", h.ListUsers)
			r.Get("/users/me", h.CurrentUser)

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", h.ListCompanies)
				r.Post("/", h.CreateCompany)

				r.Route("/{companyID}", func(r chi.Router) {
					r.Get("/", h.GetCompany)
					r.Put("/", h.UpdateCompany)
					r.Delete("/", h.DeleteCompany)

					r.Route("/departments", func(r chi.Router) {
						r.Get("/", h.ListDepartments)
						r.Post("/", h.CreateDepartment)

						r.Route("/{departmentID}", func(r chi.Router) {
							r.Get("/", h.GetDepartment)
							r.Put("/", h.UpdateDepartment)
							r.Delete("/", h.DeleteDepartment)

							r.Route("/budgets", func(r chi.Router) {
								r.Get("/", h.ListBudgets)
								r.Post("/", h.CreateBudget)
								r.Get("/{budgetID}", h.GetBudget)
								r.Put("/{budgetID}", h.UpdateBudget)
								r.Delete("/{budgetID}", h.DeleteBudget)
							})

							r.Route("/transactions", func(r chi.Router) {
								r.Get("/", h.ListTransactions)
								r.Post("/", h.CreateTransaction)
								r.Get("/{transactionID}", h.GetTransaction)
								r.Put("/{transactionID}", h.UpdateTransaction)
								r.Delete("/{transactionID}", h.DeleteTransaction)
							})

							r.Route("/expenses", func(r chi.Router) {
								r.Get("/", h.ListExpenses)
								r.Post("/", h.CreateExpense)
								r.Get("/{expenseID}", h.GetExpense)
								r.Put("/{expenseID}", h.UpdateExpense)
								r.Delete("/{expenseID}", h.DeleteExpense)
							})
						})
					})
				})
			})
		})
	})

	return r
}
