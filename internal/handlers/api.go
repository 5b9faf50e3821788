package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
	"github.com/rumor-ml/commons.systems/smsparse/internal/middleware"
	"github.com/rumor-ml/commons.systems/smsparse/internal/store"
)

// Ingestor processes one SMS for an owner.
type Ingestor interface {
	Ingest(ctx context.Context, sender, body, owner string) (domain.Outcome, error)
}

// Reader lists stored records for an owner.
type Reader interface {
	Transactions(ctx context.Context, owner string) ([]*domain.Transaction, error)
	Outcomes(ctx context.Context, owner string) ([]*store.StoredOutcome, error)
}

// APIHandler handles API requests
type APIHandler struct {
	ingestor Ingestor
	reader   Reader
	logger   *slog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(ingestor Ingestor, reader Reader, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{ingestor: ingestor, reader: reader, logger: logger}
}

// smsRequest is the POST /api/sms payload.
type smsRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// smsResponse reports the recorded outcome for one message.
type smsResponse struct {
	Outcome       string `json:"outcome"`
	TransactionID string `json:"transactionId,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// IngestSMS handles POST /api/sms
func (h *APIHandler) IngestSMS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req smsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Sender == "" || req.Body == "" {
		http.Error(w, "sender and body are required", http.StatusBadRequest)
		return
	}

	outcome, err := h.ingestor.Ingest(r.Context(), req.Sender, req.Body, userID)
	if err != nil {
		h.logger.Error("ingestion failed", "user", userID, "error", err)
		http.Error(w, "Failed to ingest message", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if outcome.Kind == domain.OutcomePersistenceFailed {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(smsResponse{
		Outcome:       string(outcome.Kind),
		TransactionID: outcome.TransactionID,
		Reason:        outcome.Reason,
	}); err != nil {
		h.logger.Error("failed to encode outcome", "user", userID, "error", err)
	}
}

// GetTransactions handles GET /api/transactions
func (h *APIHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := h.reader.Transactions(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to fetch transactions", "user", userID, "error", err)
		http.Error(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transactions); err != nil {
		h.logger.Error("failed to encode transactions", "user", userID, "error", err)
	}
}

// GetOutcomes handles GET /api/outcomes
func (h *APIHandler) GetOutcomes(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outcomes, err := h.reader.Outcomes(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to fetch outcomes", "user", userID, "error", err)
		http.Error(w, "Failed to fetch outcomes", http.StatusInternalServerError)
		return
	}
	if outcomes == nil {
		outcomes = []*store.StoredOutcome{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outcomes); err != nil {
		h.logger.Error("failed to encode outcomes", "user", userID, "error", err)
	}
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
