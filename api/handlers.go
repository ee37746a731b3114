/*
handlers.go - HTTP API handlers for the budget management system

PURPOSE:
  Exposes the budget engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS (all under /api/v1):
  Auth:
    POST   /auth                        Exchange credentials for a token

  Companies:
    GET    /companies                   List companies
    POST   /companies                   Create company
    GET    /companies/{id}              Get company
    PUT    /companies/{id}              Edit company
    DELETE /companies/{id}              Remove company and everything owned

  Departments (nested under a company):
    GET    /companies/{id}/departments
    POST   /companies/{id}/departments
    GET    /companies/{id}/departments/{id}
    PUT    /companies/{id}/departments/{id}
    DELETE /companies/{id}/departments/{id}

  Budgets, transactions and expenses nest one level further, for example
  POST /companies/{id}/departments/{id}/transactions.

  Users:
    GET    /users                       List users
    GET    /users/me                    The authenticated user
    POST   /users                       Register a user

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (shape only; referential checks live in the engine)
  3. Call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad JSON, bad dates, non-positive amounts)
  - 401: Missing or invalid token
  - 404: Referenced company/department/record not found
  - 409: Duplicate company name or user email
  - 422: Dependency failures (no covering budget, overlap, bad parent)
  - 500: Internal errors, with the storage detail kept out of the body

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Token middleware and the login handler
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/budgeteala/budget-engine/auth"
	"github.com/budgeteala/budget-engine/budget"
	"github.com/budgeteala/budget-engine/logging"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *budget.Engine
	Store  budget.Store
	Tokens *auth.Tokens
	Log    *logging.Logger
}

// NewHandler creates a new handler. Tokens may be nil, which disables
// authentication (every request acts as an anonymous user).
func NewHandler(engine *budget.Engine, store budget.Store, tokens *auth.Tokens, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{Engine: engine, Store: store, Tokens: tokens, Log: log}
}

// Health reports that the service is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns companies, optionally filtered by name prefix.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Engine.ListCompanies(r.Context(), budget.CompanyFilter{
		NamePrefix: r.URL.Query().Get("name"),
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]CompanyDTO, len(companies))
	for i := range companies {
		dtos[i] = toCompanyDTO(&companies[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "companyID")
	if !ok {
		return
	}
	company, err := h.Engine.GetCompany(r.Context(), budget.CompanyID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(company))
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	company, err := h.Engine.CreateCompany(r.Context(), req.Name)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(company))
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "companyID")
	if !ok {
		return
	}
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	company, err := h.Engine.EditCompany(r.Context(), budget.CompanyID(id), req.Name)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(company))
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "companyID")
	if !ok {
		return
	}
	company, err := h.Engine.RemoveCompany(r.Context(), budget.CompanyID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(company))
}

// =============================================================================
// DEPARTMENT HANDLERS
// =============================================================================

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r, "companyID")
	if !ok {
		return
	}
	departments, err := h.Engine.ListDepartments(r.Context(), budget.DepartmentFilter{
		Company:    budget.CompanyID(companyID),
		NamePrefix: r.URL.Query().Get("name"),
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]DepartmentDTO, len(departments))
	for i := range departments {
		dtos[i] = toDepartmentDTO(&departments[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	department, err := h.Engine.GetDepartment(r.Context(), companyID, departmentID)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(department))
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r, "companyID")
	if !ok {
		return
	}
	var req DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	department, err := h.Engine.CreateDepartment(r.Context(), budget.DepartmentProspect{
		Company: budget.CompanyID(companyID),
		Name:    req.Name,
		Parent:  departmentRef(req.Parent),
	})
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentDTO(department))
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	var req DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	department, err := h.Engine.EditDepartment(r.Context(), budget.DepartmentProspect{
		ID:      departmentID,
		Company: companyID,
		Name:    req.Name,
		Parent:  departmentRef(req.Parent),
	})
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(department))
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	// The department must belong to the company in the URL before the
	// cascade runs.
	if _, err := h.Engine.GetDepartment(r.Context(), companyID, departmentID); err != nil {
		writeRestError(w, err)
		return
	}
	department, err := h.Engine.RemoveDepartment(r.Context(), departmentID)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(department))
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	budgets, err := h.Engine.ListBudgets(r.Context(), budget.BudgetFilter{
		Company:    companyID,
		Department: departmentID,
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i := range budgets {
		dtos[i] = toBudgetDTO(&budgets[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	_, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "budgetID")
	if !ok {
		return
	}
	b, err := h.Engine.GetBudget(r.Context(), budget.BudgetID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	if b.Department != departmentID {
		writeRestError(w, budget.NewBudgetNotFound(budget.BudgetID(id)))
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	var req BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, end, ok := budgetPeriod(w, req)
	if !ok {
		return
	}

	b, err := h.Engine.CreateBudget(r.Context(), budget.BudgetProspect{
		Company:    companyID,
		Department: departmentID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "budgetID")
	if !ok {
		return
	}
	var req BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, end, ok := budgetPeriod(w, req)
	if !ok {
		return
	}

	b, err := h.Engine.EditBudget(r.Context(), budget.BudgetProspect{
		ID:         budget.BudgetID(id),
		Company:    companyID,
		Department: departmentID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "budgetID")
	if !ok {
		return
	}
	b, err := h.Engine.RemoveBudget(r.Context(), companyID, departmentID, budget.BudgetID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// budgetPeriod parses and sanity-checks a budget request's period.
func budgetPeriod(w http.ResponseWriter, req BudgetRequest) (time.Time, time.Time, bool) {
	start, err := parseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return time.Time{}, time.Time{}, false
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "Start date must be before end date", nil)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// =============================================================================
// BUDGET TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	from, to, ok := rangeQuery(w, r)
	if !ok {
		return
	}
	transactions, err := h.Engine.ListTransactions(r.Context(), budget.TransactionFilter{
		Company:    companyID,
		Department: departmentID,
		From:       from,
		To:         to,
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(transactions))
	for i := range transactions {
		dtos[i] = toTransactionDTO(&transactions[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	_, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "transactionID")
	if !ok {
		return
	}
	t, err := h.Engine.GetTransaction(r.Context(), budget.TransactionID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	if t.Department != departmentID {
		writeRestError(w, budget.NewTransactionNotFound(budget.TransactionID(id)))
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	prospect, ok := h.transactionProspect(w, r, companyID, departmentID, 0)
	if !ok {
		return
	}

	t, err := h.Engine.CreateTransaction(r.Context(), userID(r.Context()), prospect)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "transactionID")
	if !ok {
		return
	}
	prospect, ok := h.transactionProspect(w, r, companyID, departmentID, budget.TransactionID(id))
	if !ok {
		return
	}

	t, err := h.Engine.EditTransaction(r.Context(), prospect)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "transactionID")
	if !ok {
		return
	}
	t, err := h.Engine.RemoveTransaction(r.Context(), companyID, departmentID, budget.TransactionID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (h *Handler) transactionProspect(w http.ResponseWriter, r *http.Request, companyID budget.CompanyID, departmentID budget.DepartmentID, id budget.TransactionID) (budget.TransactionProspect, bool) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return budget.TransactionProspect{}, false
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be a positive number", nil)
		return budget.TransactionProspect{}, false
	}
	status := budget.TransactionStatus(req.Status)
	if !budget.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid status %q", req.Status), nil)
		return budget.TransactionProspect{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return budget.TransactionProspect{}, false
	}
	return budget.TransactionProspect{
		ID:         id,
		Company:    companyID,
		Department: departmentID,
		Amount:     amountFromFloat(req.Amount),
		Status:     status,
		Date:       date,
	}, true
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	from, to, ok := rangeQuery(w, r)
	if !ok {
		return
	}
	expenses, err := h.Engine.ListExpenses(r.Context(), budget.ExpenseFilter{
		Company:    companyID,
		Department: departmentID,
		From:       from,
		To:         to,
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i := range expenses {
		dtos[i] = toExpenseDTO(&expenses[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	_, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "expenseID")
	if !ok {
		return
	}
	e, err := h.Engine.GetExpense(r.Context(), budget.ExpenseID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	if e.Department != departmentID {
		writeRestError(w, budget.NewExpenseNotFound(budget.ExpenseID(id)))
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	prospect, ok := h.expenseProspect(w, r, companyID, departmentID, 0)
	if !ok {
		return
	}

	e, err := h.Engine.CreateExpense(r.Context(), userID(r.Context()), prospect)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "expenseID")
	if !ok {
		return
	}
	prospect, ok := h.expenseProspect(w, r, companyID, departmentID, budget.ExpenseID(id))
	if !ok {
		return
	}

	e, err := h.Engine.EditExpense(r.Context(), prospect)
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	companyID, departmentID, ok := scopeParams(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "expenseID")
	if !ok {
		return
	}
	e, err := h.Engine.RemoveExpense(r.Context(), companyID, departmentID, budget.ExpenseID(id))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (h *Handler) expenseProspect(w http.ResponseWriter, r *http.Request, companyID budget.CompanyID, departmentID budget.DepartmentID, id budget.ExpenseID) (budget.ExpenseProspect, bool) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return budget.ExpenseProspect{}, false
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be a positive number", nil)
		return budget.ExpenseProspect{}, false
	}
	if len(req.Concept) > budget.MaxConceptLength {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Concept must be at most %d characters", budget.MaxConceptLength), nil)
		return budget.ExpenseProspect{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return budget.ExpenseProspect{}, false
	}
	return budget.ExpenseProspect{
		ID:         id,
		Company:    companyID,
		Department: departmentID,
		Amount:     amountFromFloat(req.Amount),
		Concept:    req.Concept,
		Date:       date,
	}, true
}

// =============================================================================
// USER HANDLERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Engine.ListUsers(r.Context(), budget.UserFilter{
		NamePrefix:  r.URL.Query().Get("name"),
		EmailPrefix: r.URL.Query().Get("email"),
	})
	if err != nil {
		writeRestError(w, err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CurrentUser returns the user behind the request's token.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Engine.CurrentUser(r.Context(), userID(r.Context()))
	if err != nil {
		writeRestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// RegisterUser creates a user with a bcrypt-hashed password. Email must be
// unique.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	existing, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.Log.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("A user already exists with email %s", req.Email), nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.Log.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}
	user := &budget.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hash,
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		h.Log.Error("user insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeRestError maps a typed domain error to its status. Anything else is
// a 500 with a generic body.
func writeRestError(w http.ResponseWriter, err error) {
	if restErr, ok := budget.AsRestError(err); ok {
		writeJSON(w, restErr.Code, ErrorResponse{Error: restErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// idParam reads a numeric URL parameter, answering 400 on garbage.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), nil)
		return 0, false
	}
	return id, true
}

// scopeParams reads the company/department pair every nested route carries.
func scopeParams(w http.ResponseWriter, r *http.Request) (budget.CompanyID, budget.DepartmentID, bool) {
	companyID, ok := idParam(w, r, "companyID")
	if !ok {
		return 0, 0, false
	}
	departmentID, ok := idParam(w, r, "departmentID")
	if !ok {
		return 0, 0, false
	}
	return budget.CompanyID(companyID), budget.DepartmentID(departmentID), true
}

// parseDate accepts RFC3339 or a bare date, read as midnight UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", s)
	}
	return t.UTC(), nil
}

// rangeQuery reads optional from/to query parameters.
func rangeQuery(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return nil, nil, false
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

func departmentRef(id *int64) *budget.DepartmentID {
	if id == nil {
		return nil
	}
	d := budget.DepartmentID(*id)
	return &d
}
