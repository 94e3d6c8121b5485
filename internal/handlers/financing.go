package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/disbursement"
	"bnpl-financing-engine/internal/services/financing"
	"bnpl-financing-engine/internal/utils"
)

const maxBodyBytes = 1 << 20

// FinancingService is the business surface behind the financing endpoints.
type FinancingService interface {
	Apply(ctx context.Context, req financing.ApplyRequest) (*models.Loan, error)
	CheckEligibility(ctx context.Context, borrowerID, providerID, productID string) (models.EligibilityResult, error)
	Statement(ctx context.Context, borrowerID string) ([]models.StatementLine, error)
	CreateApplication(ctx context.Context, borrowerID, productID string, amount decimal.Decimal) (*models.LoanApplication, error)
	Loan(ctx context.Context, loanID string) (*models.Loan, error)
	AuditTrail(ctx context.Context, entityID string) ([]models.AuditLog, error)
}

// EligibilityRequest asks whether a borrower may finance with a product.
type EligibilityRequest struct {
	BorrowerID string `json:"borrower_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	ProviderID string `json:"provider_id"`
}

// LoanRequest asks to finance a purchase.
type LoanRequest struct {
	BorrowerID    string          `json:"borrower_id" validate:"required"`
	ProductID     string          `json:"product_id" validate:"required"`
	LoanAmount    decimal.Decimal `json:"loan_amount" validate:"gt=0"`
	DisbursedDate time.Time       `json:"disbursed_date"`
	DueDate       time.Time       `json:"due_date" validate:"omitempty,gtefield=DisbursedDate"`
}

// ApplicationRequest asks to approve financing for an order without
// disbursing it yet.
type ApplicationRequest struct {
	BorrowerID string          `json:"borrower_id" validate:"required"`
	ProductID  string          `json:"product_id" validate:"required"`
	LoanAmount decimal.Decimal `json:"loan_amount" validate:"gt=0"`
}

// TransactionLine is one statement row as rendered to clients.
type TransactionLine struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// FinancingHandler serves eligibility, financing and statement requests over
// HTTP and API Gateway.
type FinancingHandler struct {
	svc FinancingService
}

// NewFinancingHandler creates a new financing handler.
func NewFinancingHandler(svc FinancingService) *FinancingHandler {
	return &FinancingHandler{svc: svc}
}

// Register mounts the financing routes on mux.
func (h *FinancingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/eligibility", h.ServeEligibility)
	mux.HandleFunc("POST /api/loans", h.ServeCreateLoan)
	mux.HandleFunc("GET /api/loans/{id}", h.ServeLoan)
	mux.HandleFunc("POST /api/applications", h.ServeCreateApplication)
	mux.HandleFunc("GET /api/orders/{id}/audit-logs", h.ServeAuditTrail)
	mux.HandleFunc("GET /api/borrowers/{id}/transactions", h.ServeTransactions)
}

// ServeEligibility handles POST /api/eligibility.
func (h *FinancingHandler) ServeEligibility(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to read body"})
		return
	}
	status, resp := h.eligibility(r.Context(), body)
	writeJSON(w, status, resp)
}

// ServeCreateLoan handles POST /api/loans.
func (h *FinancingHandler) ServeCreateLoan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to read body"})
		return
	}
	status, resp := h.createLoan(r.Context(), body)
	writeJSON(w, status, resp)
}

// ServeCreateApplication handles POST /api/applications.
func (h *FinancingHandler) ServeCreateApplication(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to read body"})
		return
	}
	status, resp := h.createApplication(r.Context(), body)
	writeJSON(w, status, resp)
}

// ServeLoan handles GET /api/loans/{id}.
func (h *FinancingHandler) ServeLoan(w http.ResponseWriter, r *http.Request) {
	status, resp := h.loan(r.Context(), r.PathValue("id"))
	writeJSON(w, status, resp)
}

// ServeAuditTrail handles GET /api/orders/{id}/audit-logs.
func (h *FinancingHandler) ServeAuditTrail(w http.ResponseWriter, r *http.Request) {
	status, resp := h.auditTrail(r.Context(), r.PathValue("id"))
	writeJSON(w, status, resp)
}

// ServeTransactions handles GET /api/borrowers/{id}/transactions.
func (h *FinancingHandler) ServeTransactions(w http.ResponseWriter, r *http.Request) {
	status, resp := h.transactions(r.Context(), r.PathValue("id"))
	writeJSON(w, status, resp)
}

// HandleEligibility is the API Gateway variant of ServeEligibility.
func (h *FinancingHandler) HandleEligibility(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.eligibility(ctx, []byte(request.Body))
	return proxyResponse(status, resp), nil
}

// HandleCreateLoan is the API Gateway variant of ServeCreateLoan.
func (h *FinancingHandler) HandleCreateLoan(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.createLoan(ctx, []byte(request.Body))
	return proxyResponse(status, resp), nil
}

// HandleCreateApplication is the API Gateway variant of ServeCreateApplication.
func (h *FinancingHandler) HandleCreateApplication(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.createApplication(ctx, []byte(request.Body))
	return proxyResponse(status, resp), nil
}

// HandleLoan is the API Gateway variant of ServeLoan.
func (h *FinancingHandler) HandleLoan(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.loan(ctx, request.PathParameters["id"])
	return proxyResponse(status, resp), nil
}

// HandleAuditTrail is the API Gateway variant of ServeAuditTrail.
func (h *FinancingHandler) HandleAuditTrail(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.auditTrail(ctx, request.PathParameters["id"])
	return proxyResponse(status, resp), nil
}

// HandleTransactions is the API Gateway variant of ServeTransactions.
func (h *FinancingHandler) HandleTransactions(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, resp := h.transactions(ctx, request.PathParameters["id"])
	return proxyResponse(status, resp), nil
}

func (h *FinancingHandler) eligibility(ctx context.Context, body []byte) (int, Response) {
	var req EligibilityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest("Invalid request body", nil)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest("Validation failed", validationFields(err))
	}

	result, err := h.svc.CheckEligibility(ctx, req.BorrowerID, req.ProviderID, req.ProductID)
	if err != nil {
		return fail(err, "Eligibility check failed", req.BorrowerID, req.ProductID)
	}

	return http.StatusOK, Response{Success: true, Data: result}
}

func (h *FinancingHandler) createLoan(ctx context.Context, body []byte) (int, Response) {
	var req LoanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest("Invalid request body", nil)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest("Validation failed", validationFields(err))
	}
	if !disbursement.IsMoney(req.LoanAmount) {
		return badRequest("Validation failed", map[string]string{"LoanAmount": "money"})
	}

	loan, err := h.svc.Apply(ctx, financing.ApplyRequest{
		BorrowerID:    req.BorrowerID,
		ProductID:     req.ProductID,
		LoanAmount:    req.LoanAmount,
		DisbursedDate: req.DisbursedDate,
		DueDate:       req.DueDate,
	})
	if err != nil {
		return fail(err, "Financing request failed", req.BorrowerID, req.ProductID)
	}

	return http.StatusCreated, Response{Success: true, Message: "Installment plan created", Data: loan}
}

func (h *FinancingHandler) createApplication(ctx context.Context, body []byte) (int, Response) {
	var req ApplicationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest("Invalid request body", nil)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest("Validation failed", validationFields(err))
	}
	if !disbursement.IsMoney(req.LoanAmount) {
		return badRequest("Validation failed", map[string]string{"LoanAmount": "money"})
	}

	app, err := h.svc.CreateApplication(ctx, req.BorrowerID, req.ProductID, req.LoanAmount)
	if err != nil {
		return fail(err, "Application failed", req.BorrowerID, req.ProductID)
	}

	return http.StatusCreated, Response{Success: true, Message: "Application approved", Data: app}
}

func (h *FinancingHandler) loan(ctx context.Context, loanID string) (int, Response) {
	if loanID == "" {
		return badRequest("Installment plan ID is required.", nil)
	}

	loan, err := h.svc.Loan(ctx, loanID)
	if err != nil {
		return fail(err, "Failed to fetch installment plan", "", "")
	}
	return http.StatusOK, Response{Success: true, Data: loan}
}

func (h *FinancingHandler) auditTrail(ctx context.Context, orderID string) (int, Response) {
	if orderID == "" {
		return badRequest("Order ID is required.", nil)
	}

	logs, err := h.svc.AuditTrail(ctx, orderID)
	if err != nil {
		return fail(err, "Failed to fetch audit trail", "", "")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return http.StatusOK, Response{Success: true, Data: logs}
}

func (h *FinancingHandler) transactions(ctx context.Context, borrowerID string) (int, Response) {
	if borrowerID == "" {
		return badRequest("Customer ID is required.", nil)
	}

	lines, err := h.svc.Statement(ctx, borrowerID)
	if err != nil {
		return fail(err, "Failed to fetch transactions", borrowerID, "")
	}

	out := make([]TransactionLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, TransactionLine{
			Date:        l.Date.UTC().Format("2006-01-02"),
			Description: l.Description,
			Amount:      l.Amount,
		})
	}
	return http.StatusOK, Response{Success: true, Data: out}
}

func fail(err error, msg, borrowerID, productID string) (int, Response) {
	status, resp := errorResponse(err)
	logger := utils.GetLogger()
	fields := []zap.Field{
		zap.String("borrower_id", borrowerID),
		zap.String("product_id", productID),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Info(msg, fields...)
	}
	return status, resp
}
