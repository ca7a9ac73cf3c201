package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayHeader is set on responses served from the cache.
	ReplayHeader = "X-Idempotency-Replay"

	responsePending = "processing"
)

// ResponseCache stores responses of requests that carried an idempotency key.
// It is implemented by redis.ResponseStore.
type ResponseCache interface {
	CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// cachedResponse is what the cache holds for a finished request.
// Fingerprint identifies the request body that produced it.
type cachedResponse struct {
	Status      int             `json:"status"`
	Fingerprint string          `json:"fingerprint"`
	Body        json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays responses of repeated mutating requests.
// The ledger keeps its own idempotency records, so a cache miss or outage
// never lets a request apply twice; the cache only answers warm keys early.
// A warm answer matches what the ledger would say: a replay is 200 with
// "replayed" set, and a different body under the same key is 422.
type IdempotencyMiddleware struct {
	cache ResponseCache
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(cache ResponseCache, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{cache: cache, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := zerolog.Ctx(ctx)
		cacheKey := r.Method + ":" + r.URL.Path + ":" + key

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := requestFingerprint(body)

		exists, cached, err := m.cache.CheckAndSet(ctx, cacheKey, m.ttl)
		if err != nil {
			// Fall through to the ledger's own idempotency records.
			logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency cache unavailable")
			next.ServeHTTP(w, r)
			return
		}

		if exists {
			if string(cached) == responsePending {
				writeJSONError(w, http.StatusConflict, "request with this idempotency key is in progress")
				return
			}

			var resp cachedResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				if resp.Fingerprint != fingerprint {
					writeJSONError(w, http.StatusUnprocessableEntity, domain.ErrIdempotencyKeyReuse.Error())
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(ReplayHeader, "true")
				w.WriteHeader(http.StatusOK)
				w.Write(markReplayed(resp.Body))
				return
			}
			logger.Warn().Str("idempotency_key", key).Msg("discarding unreadable cached response")
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// Detached so a client that hangs up does not leave the key reserved.
		storeCtx := context.WithoutCancel(ctx)

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			if err := m.cache.Release(storeCtx, cacheKey); err != nil {
				logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
			}
			return
		}

		respBody := recorder.body.Bytes()
		if len(respBody) == 0 {
			respBody = []byte("null")
		}
		payload, err := json.Marshal(cachedResponse{
			Status:      recorder.statusCode,
			Fingerprint: fingerprint,
			Body:        json.RawMessage(respBody),
		})
		if err == nil {
			err = m.cache.Update(storeCtx, cacheKey, payload, m.ttl)
		}
		if err != nil {
			logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to cache idempotent response")
		}
	})
}

// requestFingerprint hashes the body in a canonical JSON form so that
// formatting and key order do not matter. Bodies that are not JSON are
// hashed as sent.
func requestFingerprint(body []byte) string {
	canonical := body
	var v any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			canonical = b
		}
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// markReplayed sets "replayed" on operation responses the way the ledger
// does when it answers a resubmission itself.
func markReplayed(body json.RawMessage) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	if _, ok := fields["replayed"]; !ok {
		return body
	}
	fields["replayed"] = json.RawMessage("true")
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
