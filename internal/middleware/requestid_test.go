package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})
	return r
}

func TestRequestIDEchoesCallerID(t *testing.T) {
	r := newRequestIDRouter()
	rid := uuid.New().String()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderXRequestID, rid)
	r.ServeHTTP(w, req)

	assert.Equal(t, rid, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, rid, w.Body.String())
}

func TestRequestIDMintsWhenMissingOrInvalid(t *testing.T) {
	r := newRequestIDRouter()

	for name, header := range map[string]string{
		"missing": "",
		"invalid": "not-a-uuid",
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if header != "" {
				req.Header.Set(HeaderXRequestID, header)
			}
			r.ServeHTTP(w, req)

			rid := w.Header().Get(HeaderXRequestID)
			_, err := uuid.Parse(rid)
			require.NoError(t, err, "response carries a minted UUID")
			assert.NotEqual(t, header, rid)
			assert.Equal(t, rid, w.Body.String())
		})
	}
}
