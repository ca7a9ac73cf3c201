package handler

import (
	"context"
	"net/http"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionService moves money. It is implemented by usecase.Coordinator.
type TransactionService interface {
	Debit(ctx context.Context, input usecase.DebitInput) (*usecase.Result, error)
	Credit(ctx context.Context, input usecase.CreditInput) (*usecase.Result, error)
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.Result, error)
}

// TransferHandler handles balance-mutating HTTP requests.
type TransferHandler struct {
	coordinator TransactionService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(coordinator TransactionService) *TransferHandler {
	return &TransferHandler{coordinator: coordinator}
}

// Debit removes money from the account in the URL.
func (h *TransferHandler) Debit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account ID", err.Error())
		return
	}

	var req dto.AmountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.coordinator.Debit(r.Context(), req.ToDebitInput(id, r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		writeDomainError(w, r, "failed to debit account", err)
		return
	}

	writeOperation(w, result)
}

// Credit adds money to the account in the URL.
func (h *TransferHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account ID", err.Error())
		return
	}

	var req dto.AmountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.coordinator.Credit(r.Context(), req.ToCreditInput(id, r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		writeDomainError(w, r, "failed to credit account", err)
		return
	}

	writeOperation(w, result)
}

// Create moves money between two accounts.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.coordinator.Transfer(r.Context(), req.ToUseCaseInput(r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		writeDomainError(w, r, "failed to create transfer", err)
		return
	}

	writeOperation(w, result)
}

// writeOperation answers 201 for a new commit and 200 for a replay.
func writeOperation(w http.ResponseWriter, result *usecase.Result) {
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.OperationFromResult(result))
}
