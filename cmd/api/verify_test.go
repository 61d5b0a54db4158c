package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailprobe/internal/models"
)

// stubVerifier serves canned verdicts so handler tests never touch the network.
type stubVerifier struct {
	verdicts map[string]models.Verdict
}

func (s *stubVerifier) Verify(ctx context.Context, email string) models.Verdict {
	if v, ok := s.verdicts[email]; ok {
		return v
	}
	return models.Verdict{Email: strings.TrimSpace(email), Status: models.StatusUnknown}
}

func (s *stubVerifier) VerifyBulk(ctx context.Context, emails []string) []models.Verdict {
	out := make([]models.Verdict, len(emails))
	for i, e := range emails {
		out[i] = s.Verify(ctx, e)
	}
	return out
}

func withStubService(t *testing.T, s verifier) {
	t.Helper()
	prev := svc
	svc = s
	t.Cleanup(func() { svc = prev })
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestVerifyHandler(t *testing.T) {
	want := models.Verdict{
		Email:     "user@example.com",
		Status:    models.StatusValid,
		Reason:    "Deliverable",
		Score:     100,
		Provider:  "Google Workspace",
		RiskLevel: models.RiskLow,
	}
	withStubService(t, &stubVerifier{verdicts: map[string]models.Verdict{
		"user@example.com": want,
	}})

	rec := postJSON(verifyHandler, "/verify", `{"email": "user@example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got models.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
}

func TestVerifyHandlerRequiresEmail(t *testing.T) {
	withStubService(t, &stubVerifier{})

	for _, body := range []string{`{}`, `{"email": ""}`, `{"email": "   "}`, `not json`} {
		rec := postJSON(verifyHandler, "/verify", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "Email is required", errorBody(t, rec), "body %q", body)
	}
}

func TestVerifyHandlerRejectsWrongMethod(t *testing.T) {
	withStubService(t, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	verifyHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBulkVerifyHandler(t *testing.T) {
	withStubService(t, &stubVerifier{verdicts: map[string]models.Verdict{
		"a@example.com": {Email: "a@example.com", Status: models.StatusValid},
		"b@example.com": {Email: "b@example.com", Status: models.StatusInvalid},
	}})

	rec := postJSON(bulkVerifyHandler, "/bulk-verify", `{"emails": ["a@example.com", "b@example.com"]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got bulkVerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Results, 2)
	assert.Equal(t, models.StatusValid, got.Results[0].Status)
	assert.Equal(t, models.StatusInvalid, got.Results[1].Status)
}

func TestBulkVerifyHandlerRequiresList(t *testing.T) {
	withStubService(t, &stubVerifier{})

	for _, body := range []string{`{}`, `{"emails": []}`, `not json`} {
		rec := postJSON(bulkVerifyHandler, "/bulk-verify", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "Emails list is required", errorBody(t, rec), "body %q", body)
	}
}
