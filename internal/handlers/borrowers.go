package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
)

// BorrowerDirectory is the business surface behind the borrower endpoints.
type BorrowerDirectory interface {
	List(ctx context.Context) ([]models.BorrowerSummary, error)
	FindByPhone(ctx context.Context, phone string) (*profile.Profile, error)
	UpdateStatus(ctx context.Context, borrowerID string, status models.BorrowerStatus) error
}

// StatusRequest changes a borrower's standing.
type StatusRequest struct {
	BorrowerID string `json:"borrower_id" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=Active NPL"`
}

// BorrowerHandler serves the customer directory.
type BorrowerHandler struct {
	dir BorrowerDirectory
}

// NewBorrowerHandler creates a new borrower handler.
func NewBorrowerHandler(dir BorrowerDirectory) *BorrowerHandler {
	return &BorrowerHandler{dir: dir}
}

// Register mounts the borrower routes on mux.
func (h *BorrowerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/borrowers", h.ServeList)
	mux.HandleFunc("PUT /api/borrowers", h.ServeUpdateStatus)
	mux.HandleFunc("GET /api/ussd/borrowers", h.ServeLookup)
}

// ServeList handles GET /api/borrowers.
func (h *BorrowerHandler) ServeList(w http.ResponseWriter, r *http.Request) {
	status, resp := h.list(r.Context())
	writeJSON(w, status, resp)
}

// ServeUpdateStatus handles PUT /api/borrowers.
func (h *BorrowerHandler) ServeUpdateStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to read body"})
		return
	}
	status, resp := h.updateStatus(r.Context(), body)
	writeJSON(w, status, resp)
}

// ServeLookup handles GET /api/ussd/borrowers?phoneNumber=.
func (h *BorrowerHandler) ServeLookup(w http.ResponseWriter, r *http.Request) {
	status, resp := h.lookup(r.Context(), r.URL.Query().Get("phoneNumber"))
	writeJSON(w, status, resp)
}

// Handle routes an API Gateway request by method and query.
func (h *BorrowerHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var (
		status int
		resp   Response
	)
	switch {
	case request.HTTPMethod == http.MethodPut:
		status, resp = h.updateStatus(ctx, []byte(request.Body))
	case request.QueryStringParameters["phoneNumber"] != "":
		status, resp = h.lookup(ctx, request.QueryStringParameters["phoneNumber"])
	default:
		status, resp = h.list(ctx)
	}
	return proxyResponse(status, resp), nil
}

func (h *BorrowerHandler) list(ctx context.Context) (int, Response) {
	borrowers, err := h.dir.List(ctx)
	if err != nil {
		return fail(err, "Failed to fetch borrowers", "", "")
	}
	return http.StatusOK, Response{Success: true, Data: borrowers}
}

func (h *BorrowerHandler) lookup(ctx context.Context, phone string) (int, Response) {
	if phone == "" {
		return badRequest("Phone number is required.", nil)
	}

	p, err := h.dir.FindByPhone(ctx, phone)
	if err != nil {
		return fail(err, "Failed to retrieve customer", "", "")
	}
	if p == nil {
		return http.StatusNotFound, Response{Success: false, Error: "Customer not found."}
	}
	return http.StatusOK, Response{Success: true, Data: p.Map()}
}

func (h *BorrowerHandler) updateStatus(ctx context.Context, body []byte) (int, Response) {
	var req StatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest("Invalid request body", nil)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest("Validation failed", validationFields(err))
	}

	if err := h.dir.UpdateStatus(ctx, req.BorrowerID, models.BorrowerStatus(req.Status)); err != nil {
		return fail(err, "Failed to update borrower status", req.BorrowerID, "")
	}
	return http.StatusOK, Response{Success: true, Message: "Borrower status updated"}
}
