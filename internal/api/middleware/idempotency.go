package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/nairatrade/deposits/internal/api/problem"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyGuard reserves Idempotency-Key values in redis with SETNX so a
// retried deposit creation collapses onto the first attempt. The reservation
// is a cheap outer guard; the unique tx_ref column remains the hard one.
//
// A second request with the same key but a different body is a client bug
// and is rejected outright.
func IdempotencyGuard(rdb redis.Cmdable, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				problem.Write(w, r, http.StatusBadRequest, problem.Type("idempotency/missing-key"), http.StatusText(http.StatusBadRequest), "Idempotency-Key header is required")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				problem.Write(w, r, http.StatusBadRequest, problem.Type("request/invalid-body"), http.StatusText(http.StatusBadRequest), "Failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			reqHash := hashRequest(r.Method, r.URL.Path, body)
			redisKey := "idem:" + UserIDFromContext(r.Context()) + ":" + key

			reserved, err := rdb.SetNX(r.Context(), redisKey, reqHash, idempotencyTTL).Result()
			if err != nil {
				// Redis being down must not block deposits; the tx_ref
				// uniqueness constraint still protects the ledger.
				logger.Warn("idempotency reservation unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				stored, err := rdb.Get(r.Context(), redisKey).Result()
				if err == nil && stored != reqHash {
					problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/key-conflict"), http.StatusText(http.StatusConflict), "Idempotency-Key was already used with a different request")
					return
				}
				problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/duplicate-request"), http.StatusText(http.StatusConflict), "A request with this Idempotency-Key is already processed or in flight")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.Sum256(append([]byte(method+"|"+path+"|"), body...))
	return hex.EncodeToString(sum[:])
}
