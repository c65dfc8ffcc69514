package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	events "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// Server is the ingress and query surface. It validates transfer requests,
// enqueues the command on the log, and serves the record store for the UI.
// All workflow logic lives in the orchestrator; this layer is a thin wrapper.
type Server struct {
	store     interfaces.TransactionStore
	publisher interfaces.EventPublisher
	log       *slog.Logger
}

func NewServer(store interfaces.TransactionStore, publisher interfaces.EventPublisher, log *slog.Logger) *Server {
	return &Server{store: store, publisher: publisher, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/transfers", s.handleCreateTransfer)
	r.Get("/transactions", s.handleListTransactions)
	r.Get("/transactions/{id}", s.handleGetTransaction)
	r.Get("/transactions/{id}/events", s.handleGetTimeline)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type transferRequest struct {
	UserID      string          `json:"userId"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (req transferRequest) validate() error {
	switch {
	case req.UserID == "":
		return errors.New("userId is required")
	case req.FromAccount == "":
		return errors.New("fromAccount is required")
	case req.ToAccount == "":
		return errors.New("toAccount is required")
	case req.Amount.Cmp(decimal.Zero) <= 0:
		return errors.New("amount must be positive")
	}
	return nil
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	cmd := models.Command{
		ID:            uuid.New().String(),
		TransactionID: uuid.New().String(),
		UserID:        req.UserID,
		Payload: models.CommandPayload{
			FromAccount: req.FromAccount,
			ToAccount:   req.ToAccount,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
		},
	}

	if err := s.store.Create(r.Context(), models.NewTransactionRecord(cmd)); err != nil {
		s.log.Error("record create failed", "transactionId", cmd.TransactionID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not accept transfer")
		return
	}

	// Partition key is the transaction id so the saga's events stay ordered.
	if err := s.publisher.Publish(r.Context(), events.TopicCommands, cmd.TransactionID, cmd); err != nil {
		s.log.Error("command publish failed", "transactionId", cmd.TransactionID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not accept transfer")
		return
	}

	s.log.Info("transfer accepted", "transactionId", cmd.TransactionID, "userId", cmd.UserID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"transactionId": cmd.TransactionID,
		"status":        string(models.StatusPending),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.FindAll(r.Context())
	if err != nil {
		s.log.Error("listing transactions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	record, ok := s.findRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	record, ok := s.findRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Timeline(record))
}

func (s *Server) findRecord(w http.ResponseWriter, r *http.Request) (models.TransactionRecord, bool) {
	id := chi.URLParam(r, "id")
	record, err := s.store.FindByID(r.Context(), id)
	if errors.Is(err, interfaces.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return models.TransactionRecord{}, false
	}
	if err != nil {
		s.log.Error("transaction lookup failed", "transactionId", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return models.TransactionRecord{}, false
	}
	return record, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
