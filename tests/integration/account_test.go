package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/tests/testutil"
)

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAccountLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	router := testDB.NewLedger().Router(nil)

	t.Run("create account", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/accounts/", dto.CreateAccountRequest{
			Name:     "operating",
			Currency: "USD",
		}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		account := decode[dto.AccountResponse](t, rec)
		if account.ID <= 0 {
			t.Errorf("expected a positive id, got %d", account.ID)
		}
		if account.Balance != "0.00" {
			t.Errorf("expected balance 0.00, got %s", account.Balance)
		}
		if account.Status != "ACTIVE" || account.Version != 0 {
			t.Errorf("unexpected initial state: %+v", account)
		}
	})

	t.Run("reject invalid currency", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/accounts/", dto.CreateAccountRequest{
			Name:     "bad",
			Currency: "US",
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("get unknown account", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/accounts/999999", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("list accounts", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/accounts/", dto.CreateAccountRequest{
				Name:     fmt.Sprintf("list-%d", i),
				Currency: "EUR",
			}, nil)
			if rec.Code != http.StatusCreated {
				t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
			}
		}

		rec := doJSON(t, router, http.MethodGet, "/api/v1/accounts/?limit=2&offset=1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		page := decode[dto.ListAccountsResponse](t, rec)
		if len(page.Accounts) != 2 || page.Limit != 2 || page.Offset != 1 {
			t.Fatalf("unexpected page: %+v", page)
		}
		if page.Accounts[0].ID >= page.Accounts[1].ID {
			t.Errorf("accounts should be ordered by id")
		}
	})

	t.Run("status transitions bump the version", func(t *testing.T) {
		created := decode[dto.AccountResponse](t, doJSON(t, router, http.MethodPost, "/api/v1/accounts/",
			dto.CreateAccountRequest{Name: "status", Currency: "USD"}, nil))
		path := fmt.Sprintf("/api/v1/accounts/%d/status", created.ID)

		rec := doJSON(t, router, http.MethodPatch, path, dto.UpdateStatusRequest{Status: "SUSPENDED"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("suspend: %d %s", rec.Code, rec.Body.String())
		}
		if got := decode[dto.AccountResponse](t, rec); got.Status != "SUSPENDED" || got.Version != 1 {
			t.Fatalf("unexpected account after suspend: %+v", got)
		}

		credit := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/credit", created.ID),
			map[string]string{"amount": "10.00"}, nil)
		if credit.Code != http.StatusUnprocessableEntity {
			t.Fatalf("credit on suspended account: expected 422, got %d", credit.Code)
		}

		rec = doJSON(t, router, http.MethodPatch, path, dto.UpdateStatusRequest{Status: "CLOSED"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("close: %d %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, router, http.MethodPatch, path, dto.UpdateStatusRequest{Status: "ACTIVE"}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("reopen closed account: expected 422, got %d", rec.Code)
		}
	})

	t.Run("mark account high contention", func(t *testing.T) {
		created := decode[dto.AccountResponse](t, doJSON(t, router, http.MethodPost, "/api/v1/accounts/",
			dto.CreateAccountRequest{Name: "hot", Currency: "USD"}, nil))

		hot := true
		rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/v1/accounts/%d/contention", created.ID),
			dto.SetContentionRequest{HighContention: &hot}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := decode[dto.AccountResponse](t, rec); !got.HighContention {
			t.Fatalf("expected high_contention true: %+v", got)
		}
	})
}
