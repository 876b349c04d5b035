package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/handler"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository/memory"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/usecase"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/config"
)

func setupHandler(store *memory.Store) *mux.Router {
	cfg := config.DefaultProcessingConfig()
	cfg.BatchDelay = 0
	validator := usecase.NewValidator(store, cfg, logger.NewNop())
	processor := usecase.NewProcessor(store, validator, cfg, logger.NewNop())

	router := mux.NewRouter()
	handler.NewProcessingHandler(processor, validator, logger.NewNop()).RegisterRoutes(router)
	return router
}

func seedPendingCredit(store *memory.Store, amount string) models.Transaction {
	user := models.User{
		ID:        uuid.New(),
		Balance:   decimal.NewFromInt(100),
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
	}
	store.PutUser(user)

	tx := models.Transaction{
		ID:        uuid.New(),
		UserID:    user.ID,
		Amount:    decimal.RequireFromString(amount),
		Type:      models.TransactionCredit,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	store.PutTransaction(tx)
	return tx
}

func TestProcessTransactionEndpoint(t *testing.T) {
	store := memory.NewStore()
	tx := seedPendingCredit(store, "50")
	router := setupHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+tx.ID.String()+"/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Processed)

	updated, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusCompleted, updated.Status)
}

func TestProcessTransactionEndpointInvalidID(t *testing.T) {
	router := setupHandler(memory.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/not-a-uuid/process", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationEndpoint(t *testing.T) {
	store := memory.NewStore()
	tx := seedPendingCredit(store, "50")
	router := setupHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+tx.ID.String()+"/validation", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result usecase.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsValid)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)

	// Dry-run validation must not change anything.
	updated, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestBatchEndpointAccepted(t *testing.T) {
	router := setupHandler(memory.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/batch", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
