package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/services/profile"
)

type fakeDirectory struct {
	listErr error
	updated map[string]models.BorrowerStatus
	phone   string
}

func (f *fakeDirectory) List(context.Context) ([]models.BorrowerSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []models.BorrowerSummary{{ID: "b1", Name: "Abebe", Status: models.BorrowerStatusActive}}, nil
}

func (f *fakeDirectory) FindByPhone(_ context.Context, phone string) (*profile.Profile, error) {
	f.phone = phone
	if phone != "0911234567" {
		return nil, nil
	}
	p := profile.New()
	p.Set(profile.FieldID, profile.StringValue("b1"))
	p.Set(profile.NormalizeFieldName("fullName"), profile.StringValue("Abebe"))
	return p, nil
}

func (f *fakeDirectory) UpdateStatus(_ context.Context, borrowerID string, status models.BorrowerStatus) error {
	if borrowerID == "missing" {
		return models.ErrBorrowerNotFound
	}
	f.updated[borrowerID] = status
	return nil
}

func newBorrowerServer(dir *fakeDirectory) *httptest.Server {
	mux := http.NewServeMux()
	NewBorrowerHandler(dir).Register(mux)
	return httptest.NewServer(mux)
}

func put(t *testing.T, srv *httptest.Server, path, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestBorrowers_List(t *testing.T) {
	dir := &fakeDirectory{}
	srv := newBorrowerServer(dir)
	defer srv.Close()

	status, resp := get(t, srv, "/api/borrowers")
	assert.Equal(t, http.StatusOK, status)
	list, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "Abebe", list[0].(map[string]interface{})["name"])

	dir.listErr = errors.New("pool closed")
	status, resp = get(t, srv, "/api/borrowers")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, internalErrorMessage, resp.Error)
}

func TestBorrowers_Lookup(t *testing.T) {
	dir := &fakeDirectory{}
	srv := newBorrowerServer(dir)
	defer srv.Close()

	status, resp := get(t, srv, "/api/ussd/borrowers?phoneNumber=0911234567")
	assert.Equal(t, http.StatusOK, status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "b1", data["id"])
	assert.Equal(t, "Abebe", data["fullname"])

	status, resp = get(t, srv, "/api/ussd/borrowers?phoneNumber=0900000000")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Customer not found.", resp.Error)

	status, _ = get(t, srv, "/api/ussd/borrowers")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBorrowers_UpdateStatus(t *testing.T) {
	dir := &fakeDirectory{updated: map[string]models.BorrowerStatus{}}
	srv := newBorrowerServer(dir)
	defer srv.Close()

	assert.Equal(t, http.StatusOK, put(t, srv, "/api/borrowers", `{"borrower_id":"b1","status":"NPL"}`))
	assert.Equal(t, models.BorrowerStatusNPL, dir.updated["b1"])

	assert.Equal(t, http.StatusBadRequest, put(t, srv, "/api/borrowers", `{"borrower_id":"b1","status":"Frozen"}`))
	assert.Equal(t, http.StatusNotFound, put(t, srv, "/api/borrowers", `{"borrower_id":"missing","status":"Active"}`))
}

func TestBorrowers_LambdaRouting(t *testing.T) {
	dir := &fakeDirectory{updated: map[string]models.BorrowerStatus{}}
	h := NewBorrowerHandler(dir)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"phoneNumber": "0911234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0911234567", dir.phone)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPut,
		Body:       `{"borrower_id":"b1","status":"Active"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.BorrowerStatusActive, dir.updated["b1"])
}
