package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"bnpl-financing-engine/internal/models"
)

// Response represents a standard API response.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const internalErrorMessage = "An internal server error occurred."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Validate decimals by their numeric value so tags like gt=0 apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// validationFields maps each failed field to the tag it failed.
func validationFields(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

func badRequest(message string, fields map[string]string) (int, Response) {
	return http.StatusBadRequest, Response{Success: false, Error: message, Fields: fields}
}

// errorStatus maps a financing error to its HTTP status and client message.
// Unknown errors get a generic message.
func errorStatus(err error) (int, string) {
	var (
		denied  *models.DeniedError
		limit   *models.LimitExceededError
		funds   *models.InsufficientFundsError
		missing *models.MissingAccountError
	)

	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidDates),
		errors.Is(err, models.ErrInvalidBorrowerStatus):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrProviderNotFound),
		errors.Is(err, models.ErrBorrowerNotFound),
		errors.Is(err, models.ErrLoanNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &denied), errors.As(err, &limit):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrActivePlanExists),
		errors.Is(err, models.ErrLockNotObtained),
		errors.Is(err, models.ErrConcurrentDisbursement):
		return http.StatusConflict, err.Error()
	case errors.As(err, &funds), errors.As(err, &missing), errors.Is(err, models.ErrLedgerAccountMissing):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func errorResponse(err error) (int, Response) {
	status, message := errorStatus(err)
	return status, Response{Success: false, Error: message}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func proxyResponse(status int, data interface{}) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Access-Control-Allow-Origin": "*",
		"Content-Type":                "application/json",
	}

	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"` + internalErrorMessage + `"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}
