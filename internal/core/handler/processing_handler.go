package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/usecase"
)

// ProcessingHandler exposes the route-layer triggers for the transaction
// engine: process one transaction, dry-run validation, and a manual batch run.
type ProcessingHandler struct {
	processor *usecase.Processor
	validator *usecase.Validator
	log       logger.Logger
}

type ProcessResponse struct {
	Error         string `json:"error,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Processed     bool   `json:"processed"`
}

func NewProcessingHandler(processor *usecase.Processor, validator *usecase.Validator, log logger.Logger) *ProcessingHandler {
	return &ProcessingHandler{processor: processor, validator: validator, log: log}
}

func (h *ProcessingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/transactions/{transaction_id}/process", h.ProcessTransaction).Methods("POST")
	router.HandleFunc("/api/v1/transactions/{transaction_id}/validation", h.ValidateTransaction).Methods("GET")
	router.HandleFunc("/api/v1/transactions/batch", h.BatchProcess).Methods("POST")
}

func (h *ProcessingHandler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	processed := h.processor.ProcessTransaction(r.Context(), transactionID)
	respondWithJSON(w, http.StatusOK, ProcessResponse{
		TransactionID: transactionID.String(),
		Processed:     processed,
	})
}

func (h *ProcessingHandler) ValidateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	result := h.validator.Validate(r.Context(), transactionID)

	response, err := json.Marshal(result)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to encode validation result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}

func (h *ProcessingHandler) BatchProcess(w http.ResponseWriter, r *http.Request) {
	// The batch run is fire-and-forget; it must outlive the request context.
	go h.processor.BatchProcess(context.Background())
	respondWithJSON(w, http.StatusAccepted, ProcessResponse{})
}

func (h *ProcessingHandler) transactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["transaction_id"]
	transactionID, err := uuid.Parse(raw)
	if err != nil {
		h.log.Warn("Invalid transaction id",
			logger.StringField("transaction_id", raw),
			logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, "Invalid transaction id")
		return uuid.Nil, false
	}
	return transactionID, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ProcessResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, body ProcessResponse) {
	response, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
