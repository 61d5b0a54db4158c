package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"mailprobe/internal/models"
)

// verifier is what the handlers need from the pipeline; tests swap in a stub.
type verifier interface {
	Verify(ctx context.Context, email string) models.Verdict
	VerifyBulk(ctx context.Context, emails []string) []models.Verdict
}

var svc verifier

type verifyRequest struct {
	Email string `json:"email"`
}

type bulkVerifyRequest struct {
	Emails []string `json:"emails"`
}

type bulkVerifyResponse struct {
	Results []models.Verdict `json:"results"`
	Count   int              `json:"count"`
}

func verifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	verdict := svc.Verify(r.Context(), req.Email)
	writeJSON(w, http.StatusOK, verdict)
}

func bulkVerifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req bulkVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Emails) == 0 {
		writeError(w, http.StatusBadRequest, "Emails list is required")
		return
	}

	results := svc.VerifyBulk(r.Context(), req.Emails)
	writeJSON(w, http.StatusOK, bulkVerifyResponse{Results: results, Count: len(results)})
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	guide := map[string]interface{}{
		"service": "Mailprobe Engine",
		"version": "1.0.0",
		"capabilities": []string{
			"SMTP RCPT Probing (ports 25/587/2525)",
			"Catch-All Detection",
			"Disposable Domain Filter",
			"Provider Intelligence",
			"30-Day Verdict Cache",
			"Bulk Verification",
		},
	}
	writeJSON(w, http.StatusOK, guide)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] Encoding response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
