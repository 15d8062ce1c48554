package listener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
)

func TestBind_OneStrategySatisfiedByFirstDelivery(t *testing.T) {
	a := New(nil)
	b := a.Bind([]model.EventSourceSpec{{HTTP: &model.HTTPEventSource{Path: "/events/orders"}}}, model.ListenOne)

	req := httptest.NewRequest(http.MethodPost, "/events/orders", strings.NewReader(`{"id":1}`))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	deliveries, err := b.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, `{"id":1}`, string(deliveries[0].Body))
}

func TestBind_AllStrategyRequiresEverySource(t *testing.T) {
	a := New(nil)
	b := a.Bind([]model.EventSourceSpec{
		{HTTP: &model.HTTPEventSource{Path: "/events/a"}},
		{HTTP: &model.HTTPEventSource{Path: "/events/b"}},
	}, model.ListenAll)

	post := func(path, body string) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	post("/events/a", `{"first":true}`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := b.Wait(ctx)
	assert.Error(t, err, "strategy all must not be satisfied by one of two sources")

	post("/events/b", `{"second":true}`)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	deliveries, err := b.Wait(ctx2)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
}

func TestHandleEvent_NoBindingReturnsNotFound(t *testing.T) {
	a := New(nil)

	req := httptest.NewRequest(http.MethodPost, "/events/unbound", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnbind_RemovesRoutingTarget(t *testing.T) {
	a := New(nil)
	b := a.Bind([]model.EventSourceSpec{{HTTP: &model.HTTPEventSource{Path: "/events/orders"}}}, model.ListenOne)
	a.Unbind(b)

	req := httptest.NewRequest(http.MethodPost, "/events/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliverGRPC_MatchesServiceAndMethod(t *testing.T) {
	a := New(nil)
	b := a.Bind([]model.EventSourceSpec{{GRPC: &model.GRPCEventSource{Service: "orders.Orders", Method: "Created"}}}, model.ListenOne)

	matched := a.DeliverGRPC("orders.Orders", "Created", []byte(`{"id":7}`))
	assert.Equal(t, 1, matched)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	deliveries, err := b.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, `{"id":7}`, string(deliveries[0].Body))
}

func TestDeliverGRPC_NoMatchReturnsZero(t *testing.T) {
	a := New(nil)
	a.Bind([]model.EventSourceSpec{{GRPC: &model.GRPCEventSource{Service: "orders.Orders", Method: "Created"}}}, model.ListenOne)

	matched := a.DeliverGRPC("orders.Orders", "Cancelled", []byte(`{}`))
	assert.Equal(t, 0, matched)
}

func TestHandleHealth_ReportsHealthy(t *testing.T) {
	a := New(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
