package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type accountServiceStub struct {
	createFn     func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	getFn        func(ctx context.Context, id int64) (*domain.Account, error)
	listFn       func(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	statusFn     func(ctx context.Context, id int64, status domain.AccountStatus) (*domain.Account, error)
	contentionFn func(ctx context.Context, id int64, hot bool) (*domain.Account, error)
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return s.createFn(ctx, input)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *accountServiceStub) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return s.listFn(ctx, input)
}

func (s *accountServiceStub) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (*domain.Account, error) {
	return s.statusFn(ctx, id, status)
}

func (s *accountServiceStub) SetHighContention(ctx context.Context, id int64, hot bool) (*domain.Account, error) {
	return s.contentionFn(ctx, id, hot)
}

func TestAccountHandler_Create_Success(t *testing.T) {
	account := &domain.Account{ID: 1, Name: "test", Currency: "USD", Status: domain.AccountStatusActive}

	var captured usecase.CreateAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			captured = input
			return account, nil
		},
	})

	body, _ := json.Marshal(dto.CreateAccountRequest{Name: "test", Currency: "USD"})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.Name != "test" || captured.Currency != "USD" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 1 || resp.Balance != "0.00" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAccountHandler_Create_InvalidJSON(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			t.Fatal("CreateAccount should not be called for invalid payload")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{invalid json"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Create_ValidationFailure(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			t.Fatal("CreateAccount should not be called for invalid fields")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"currency":"DOLLARS"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Details) != 2 {
		t.Fatalf("expected two field errors, got %+v", resp.Details)
	}
}

func TestAccountHandler_Create_ServiceError(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			return nil, errors.New("db error")
		},
	})

	body, _ := json.Marshal(dto.CreateAccountRequest{Name: "test", Currency: "USD"})
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAccountHandler_Get(t *testing.T) {
	account := &domain.Account{ID: 7, Name: "test"}
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id int64) (*domain.Account, error) {
			if id != 7 {
				t.Fatalf("expected id 7, got %d", id)
			}
			return account, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/7", nil), "id", "7")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAccountHandler_Get_InvalidID(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/abc", nil), "id", "abc")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id int64) (*domain.Account, error) {
			return nil, &domain.NotFoundError{AccountID: id}
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/7", nil), "id", "7")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_List(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		listFn: func(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
			if input.Limit != 5 || input.Offset != 2 {
				t.Fatalf("expected limit=5 offset=2, got %+v", input)
			}
			return []*domain.Account{{ID: 1}, {ID: 2}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=5&offset=2", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListAccountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Accounts) != 2 || resp.Limit != 5 || resp.Offset != 2 {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestAccountHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "suspend", body: `{"status":"SUSPENDED"}`, wantStatus: http.StatusOK},
		{name: "unknown status", body: `{"status":"FROZEN"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "closed account",
			body:       `{"status":"ACTIVE"}`,
			serviceErr: domain.NewRuleViolation(domain.ErrInvalidStatus, "CLOSED -> ACTIVE"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "lost race",
			body:       `{"status":"CLOSED"}`,
			serviceErr: &domain.ConflictError{AccountID: 3, ExpectedVersion: 1},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccountHandler(&accountServiceStub{
				statusFn: func(ctx context.Context, id int64, status domain.AccountStatus) (*domain.Account, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &domain.Account{ID: id, Status: status, Version: 1}, nil
				},
			})

			req := httptest.NewRequest(http.MethodPatch, "/accounts/3/status", bytes.NewBufferString(tt.body))
			req = setChiURLParam(req, "id", "3")
			rec := httptest.NewRecorder()

			handler.UpdateStatus(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAccountHandler_SetContention(t *testing.T) {
	var gotHot bool
	handler := NewAccountHandler(&accountServiceStub{
		contentionFn: func(ctx context.Context, id int64, hot bool) (*domain.Account, error) {
			gotHot = hot
			return &domain.Account{ID: id, HighContention: hot}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/accounts/3/contention", bytes.NewBufferString(`{"high_contention":true}`))
	req = setChiURLParam(req, "id", "3")
	rec := httptest.NewRecorder()

	handler.SetContention(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotHot {
		t.Fatal("expected hot flag to be forwarded")
	}

	req = httptest.NewRequest(http.MethodPatch, "/accounts/3/contention", bytes.NewBufferString(`{}`))
	req = setChiURLParam(req, "id", "3")
	rec = httptest.NewRecorder()

	handler.SetContention(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing flag, got %d", rec.Code)
	}
}
