package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/gateway/memory"
	"github.com/cppla/discourse/models"
)

func TestInstrumentCountsCalls(t *testing.T) {
	mem := memory.New()
	gw := Instrument(mem)
	ctx := context.Background()

	okBefore := testutil.ToFloat64(gatewayCalls.WithLabelValues("insert_posts", "ok"))
	require.NoError(t, gw.InsertPosts(ctx, &models.Post{Title: "t", Category: "Biology"}))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(gatewayCalls.WithLabelValues("insert_posts", "ok")))

	errBefore := testutil.ToFloat64(gatewayCalls.WithLabelValues("select_posts", "error"))
	mem.Fail = func(op string) error { return errors.New("down") }
	_, err := gw.SelectPosts(ctx, gateway.Select())
	assert.EqualError(t, err, "down")
	assert.Equal(t, errBefore+1, testutil.ToFloat64(gatewayCalls.WithLabelValues("select_posts", "error")))
	mem.Fail = nil

	unauthBefore := testutil.ToFloat64(gatewayCalls.WithLabelValues("get_user", "unauthorized"))
	_, err = gw.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, gateway.ErrInvalidSession)
	assert.Equal(t, unauthBefore+1, testutil.ToFloat64(gatewayCalls.WithLabelValues("get_user", "unauthorized")))

	assert.Equal(t, mem.PublicURL("b", "n"), gw.PublicURL("b", "n"))
	sub := gw.OnAuthStateChange(func(gateway.AuthEvent) {})
	assert.Equal(t, 1, mem.Subscribers())
	sub.Unsubscribe()
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "not_found", outcome(gateway.ErrNotFound))
	assert.Equal(t, "rejected", outcome(&gateway.Error{Status: 409, Code: "23503"}))
	assert.Equal(t, "error", outcome(&gateway.Error{Status: 503}))
	assert.Equal(t, "error", outcome(errors.New("x")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/posts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/posts/:id", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/42", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/posts/:id", "200")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "discourse_http_requests_total"))
}
