package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

type recordingStore struct {
	acquired  []string
	operators []string
	hashes    []string
	err       error
}

func (s *recordingStore) AcquireKey(_ context.Context, key, operatorID, operation, requestHash string) (*postgres.IdempotencyReplay, error) {
	s.acquired = append(s.acquired, key+" "+operation)
	s.operators = append(s.operators, operatorID)
	s.hashes = append(s.hashes, requestHash)
	return nil, s.err
}

func (s *recordingStore) CompleteKey(context.Context, string, int, string, any) error { return nil }
func (s *recordingStore) FailKey(context.Context, string, int, string, any) error     { return nil }
func (s *recordingStore) ReleaseKey(context.Context, string) error                    { return nil }

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(mw...)
	return r
}

func TestOperator(t *testing.T) {
	var got *appctx.Operator
	r := newTestRouter(Operator())
	r.GET("/", func(c *gin.Context) {
		got = appctx.GetOperator(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderOperatorID, "  "+strings.Repeat("x", 150)+"  ")
	req.Header.Set(HeaderOperatorName, "Dr. Who")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Len(t, got.ID, maxOperatorIDLen)
	assert.Equal(t, "Dr. Who", got.Name)

	got = nil
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, got, "anonymous request carries no operator")
}

func TestTrace_EchoesOrGeneratesRequestID(t *testing.T) {
	r := newTestRouter(Trace())
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, c.GetString(KeyRequestID), appctx.GetRequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestIdempotency_OnlyKeyedWrites(t *testing.T) {
	store := &recordingStore{}
	r := newTestRouter(Operator(), Idempotency(store))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })

	get := httptest.NewRequest(http.MethodGet, "/x", nil)
	get.Header.Set(HeaderIdempotencyKey, "k")
	r.ServeHTTP(httptest.NewRecorder(), get)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	assert.Empty(t, store.acquired, "GET and unkeyed POST bypass the store")

	post := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	post.Header.Set(HeaderIdempotencyKey, "k")
	post.Header.Set(HeaderOperatorID, "op-1")
	r.ServeHTTP(httptest.NewRecorder(), post)

	other := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":2}`))
	other.Header.Set(HeaderIdempotencyKey, "k")
	r.ServeHTTP(httptest.NewRecorder(), other)

	require.Len(t, store.acquired, 2)
	assert.Equal(t, "k POST /x", store.acquired[0])
	assert.Equal(t, "op-1", store.operators[0])
	assert.NotEqual(t, store.hashes[0], store.hashes[1], "body is part of the request hash")
}

func TestIdempotency_Conflict(t *testing.T) {
	store := &recordingStore{err: apperror.NewIdempotencyConflict("k")}
	r := newTestRouter(Idempotency(store))
	called := false
	r.POST("/x", func(c *gin.Context) { called = true })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	req.Header.Set(HeaderIdempotencyKey, "k")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeIdempotency)
	assert.False(t, called)
}

func TestIdempotency_BodyTooLarge(t *testing.T) {
	r := newTestRouter(Idempotency(&recordingStore{}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", maxIdempotencyBodyBytes+1)))
	req.Header.Set(HeaderIdempotencyKey, "k")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
