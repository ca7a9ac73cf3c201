package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisrepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/usecase"
)

type fakeResponseCache struct {
	checkAndSetFn func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	updateFn      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	releaseFn     func(ctx context.Context, key string) error
}

func (f *fakeResponseCache) CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, ttl)
	}
	return false, nil, nil
}

func (f *fakeResponseCache) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, key, response, ttl)
	}
	return nil
}

func (f *fakeResponseCache) Release(ctx context.Context, key string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, key)
	}
	return nil
}

func TestIdempotencyMiddleware_FallsThroughOnCacheErrors(t *testing.T) {
	var called bool
	cache := &fakeResponseCache{
		checkAndSetFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(cache, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-err")
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(rr, req)

	assert.True(t, called, "handler should run when the cache is down")
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	var updated, released bool
	cache := &fakeResponseCache{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updated = true
			return nil
		},
		releaseFn: func(ctx context.Context, key string) error {
			released = true
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(cache, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-fail")
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})).ServeHTTP(rr, req)

	assert.False(t, updated, "error responses must not be cached")
	assert.True(t, released, "pending marker should be dropped")
}

func TestIdempotencyMiddleware_PendingKey(t *testing.T) {
	cache := &fakeResponseCache{
		checkAndSetFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return true, []byte(redisrepo.ResponsePending), nil
		},
	}
	mw := NewIdempotencyMiddleware(cache, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-busy")
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run while the key is pending")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestIdempotencyMiddleware_SkipsReadsAndKeylessRequests(t *testing.T) {
	cache := &fakeResponseCache{
		checkAndSetFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			t.Fatal("cache should not be consulted")
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(cache, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	get := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	get.Header.Set(IdempotencyKeyHeader, "key")
	mw.Wrap(next).ServeHTTP(httptest.NewRecorder(), get)

	post := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBufferString(`{}`))
	mw.Wrap(next).ServeHTTP(httptest.NewRecorder(), post)
}

func TestIdempotencyMiddleware_ReplaysWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mw := NewIdempotencyMiddleware(redisrepo.NewResponseStore(client), time.Hour)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"operation_id":"op-1"}`))
	}))

	send := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set(IdempotencyKeyHeader, "same-key")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send("/api/v1/accounts/1/debit", `{"amount":"1"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayHeader))

	// Formatting differences are the same request.
	second := send("/api/v1/accounts/1/debit", `{ "amount": "1" }`)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayHeader))
	assert.JSONEq(t, `{"operation_id":"op-1"}`, second.Body.String())
	assert.Equal(t, 1, calls)

	// Same key on another route is a different request.
	third := send("/api/v1/accounts/2/debit", `{"amount":"1"}`)
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_DifferentBodySameKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mw := NewIdempotencyMiddleware(redisrepo.NewResponseStore(client), time.Hour)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"operation_id":"op-1","replayed":false}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/", bytes.NewBufferString(body))
		req.Header.Set(IdempotencyKeyHeader, "k")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusCreated, send(`{"amount":"10"}`).Code)

	reused := send(`{"amount":"50"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
	assert.Empty(t, reused.Header().Get(ReplayHeader))
	assert.Equal(t, 1, calls, "handler must not run for a reused key")

	replay := send(`{"amount":"10"}`)
	require.Equal(t, http.StatusOK, replay.Code)
	assert.JSONEq(t, `{"operation_id":"op-1","replayed":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMiddleware_HandlerSeesOriginalBody(t *testing.T) {
	mw := NewIdempotencyMiddleware(&fakeResponseCache{}, 0)
	assert.Equal(t, usecase.IdempotencyKeyTTL, mw.ttl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/", bytes.NewBufferString(`{"amount":"7"}`))
	req.Header.Set(IdempotencyKeyHeader, "k")

	var got []byte
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, `{"amount":"7"}`, string(got))
}
