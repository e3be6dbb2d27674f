package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/apperror"
	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	keyIdempotencyKey   = "idempotency_key"
	keyIdempotencyStore = "idempotency_store"
)

// IdempotencyStore claims keys and stores finished responses.
// Implemented by *postgres.IdempotencyStore.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, operatorID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	ReleaseKey(ctx context.Context, key string) error
}

var _ IdempotencyStore = (*postgres.IdempotencyStore)(nil)

// Idempotency middleware protects against duplicate requests.
// Used for POST/PUT/PATCH operations: business IDs are drawn per request,
// so a retried create without a key would mint a second ID.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		// Hash request body
		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.Request.URL.Path
		operatorID := appctx.GetOperatorID(c.Request.Context())

		replay, err := store.AcquireKey(c.Request.Context(), key, operatorID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		// Store key for completion
		c.Set(keyIdempotencyKey, key)
		c.Set(keyIdempotencyStore, store)

		c.Next()
	}
}

// CompleteIdempotency stores a successful response for the key of this
// request, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	finishIdempotency(c, true, statusCode, contentType, response)
}

// FailIdempotency stores an error response for the key of this request.
// Transient failures release the key instead, so a retry with the same key
// runs the request again rather than replaying the outage.
func FailIdempotency(c *gin.Context, statusCode int, code string, response any) {
	if retryableFailure(statusCode, code) {
		key, store, ok := idempotencyOf(c)
		if !ok {
			return
		}
		if err := store.ReleaseKey(c.Request.Context(), key); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		}
		return
	}
	finishIdempotency(c, false, statusCode, "application/json", response)
}

// retryableFailure reports outcomes that may differ on the next attempt.
func retryableFailure(statusCode int, code string) bool {
	if statusCode >= http.StatusInternalServerError {
		return true
	}
	return code == apperror.CodeCounterUnavailable || code == apperror.CodeConcurrentModification
}

func idempotencyOf(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(keyIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, exists := c.Get(keyIdempotencyStore)
	if !exists {
		return "", nil, false
	}
	store, isStore := v.(IdempotencyStore)
	return key, store, isStore
}

func finishIdempotency(c *gin.Context, ok bool, statusCode int, contentType string, response any) {
	key, store, found := idempotencyOf(c)
	if !found {
		return
	}

	var err error
	if ok {
		err = store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response)
	} else {
		err = store.FailKey(c.Request.Context(), key, statusCode, contentType, response)
	}
	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
}
