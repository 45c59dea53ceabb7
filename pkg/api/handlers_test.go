package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/azybler/ev_router/pkg/evroute"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing"
	"github.com/azybler/ev_router/pkg/routing/routingtest"
)

// mockPlanner records the last query and answers with a fixed result.
type mockPlanner struct {
	query evroute.Query
	it    *evroute.Itinerary
	err   error
	panics bool
}

func (m *mockPlanner) Plan(_ context.Context, q evroute.Query) (*evroute.Itinerary, error) {
	if m.panics {
		panic("boom")
	}
	m.query = q
	return m.it, m.err
}

var (
	ptStart = geo.LatLng{Lat: 1.3, Lng: 103.8}
	ptEnd   = geo.LatLng{Lat: 1.35, Lng: 103.85}
)

const routeBody = `{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.35,"lng":103.85}}`

// oneLegItinerary drives straight from ptStart to ptEnd using 40 % of the
// battery.
func oneLegItinerary() *evroute.Itinerary {
	ann := routing.Annotation{Duration: 600, Distance: 7800, DrivingFactor: 7800}
	return &evroute.Itinerary{
		Route: &routing.Route{
			Legs:  []routing.Leg{{Locations: []geo.LatLng{ptStart, ptEnd}, Annotations: []routing.Annotation{ann}, Total: ann}},
			Total: ann,
		},
		Waypoints:   []evroute.Waypoint{{Location: ptStart, ChargeLevel: 100}, {Location: ptEnd, ChargeLevel: 60}},
		Capacity:    19500,
		DrivingTime: 600,
		Consumption: 7800,
		Bound:       geo.Bound([]geo.LatLng{ptStart, ptEnd}),
	}
}

func post(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleRoute_Success(t *testing.T) {
	h := NewHandlers(&routingtest.Straight{}, &mockPlanner{}, StatsResponse{}, zaptest.NewLogger(t))

	w := post(t, h.HandleRoute, "/api/v1/route", routeBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[RouteResponse](t, w)
	require.Len(t, resp.Legs, 1)
	want := geo.Distance(ptStart, ptEnd)
	assert.InDelta(t, want, resp.TotalDistanceMeters, 1)
	assert.InDelta(t, want/10, resp.TotalDurationSeconds, 0.1)
	assert.Len(t, resp.Legs[0].Geometry, 3)
}

func TestHandleRoute_BadRequests(t *testing.T) {
	h := NewHandlers(&routingtest.Straight{}, &mockPlanner{}, StatsResponse{}, nil)

	w := post(t, h.HandleRoute, "/api/v1/route", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(routeBody))
	rec := httptest.NewRecorder()
	h.HandleRoute(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing content type")

	w = post(t, h.HandleRoute, "/api/v1/route", `{"start":{"lat":91.0,"lng":103.8},"end":{"lat":1.35,"lng":103.85}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "start", decode[ErrorResponse](t, w).Field)
}

func TestHandleRoute_PointTooFar(t *testing.T) {
	router := &routingtest.Straight{Unanchorable: []geo.LatLng{ptEnd}}
	h := NewHandlers(router, &mockPlanner{}, StatsResponse{}, nil)

	w := post(t, h.HandleRoute, "/api/v1/route", routeBody)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "point_too_far_from_road", decode[ErrorResponse](t, w).Error)
}

func TestHandleRoute_NoRoute(t *testing.T) {
	router := &routingtest.Straight{MaxDistance: 100}
	h := NewHandlers(router, &mockPlanner{}, StatsResponse{}, nil)

	w := post(t, h.HandleRoute, "/api/v1/route", routeBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleEVRoute_Report(t *testing.T) {
	planner := &mockPlanner{it: oneLegItinerary()}
	h := NewHandlers(&routingtest.Straight{}, planner, StatsResponse{}, nil)

	body := `{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.35,"lng":103.85},
		"battery_capacity":50,"upper_capacity_limit":80,"algo":"dijkstra"}`
	w := post(t, h.HandleEVRoute, "/api/v1/ev-route", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	q := planner.query
	assert.Equal(t, ptStart, q.Start)
	assert.Equal(t, 50e6, q.BatteryCapacity)
	assert.Equal(t, 0.0, q.LowerPercent)
	assert.Equal(t, 80.0, q.UpperPercent)
	assert.Equal(t, evroute.DefaultTemperature, q.Temperature)
	assert.Equal(t, evroute.DefaultRadius, q.Radius)
	assert.Equal(t, evroute.StrategyDijkstra, q.Strategy)
	assert.Equal(t, evroute.OutputReport, q.Output)

	resp := decode[ReportResponse](t, w)
	require.Len(t, resp.Waypoints, 2)
	assert.Equal(t, 60.0, resp.Waypoints[1].ChargeLevel)
	assert.Equal(t, 10.0, resp.DrivingTimeMinutes)
	assert.Equal(t, 600.0, resp.Weight)
	assert.Equal(t, 7800.0, resp.Consumption)
	assert.Equal(t, [5]float64{103.8, 1.3, 0, 103.85, 1.35}, resp.BBox)
	assert.Empty(t, resp.Chargers)
	require.NotNil(t, resp.GeoJSON)
	assert.Len(t, resp.GeoJSON.Features, 1)
}

func TestHandleEVRoute_RouteOutput(t *testing.T) {
	planner := &mockPlanner{it: oneLegItinerary()}
	h := NewHandlers(&routingtest.Straight{}, planner, StatsResponse{}, nil)

	body := `{"start":{"lat":1.3,"lng":103.8},"end":{"lat":1.35,"lng":103.85},"output":"route","temperature":-5}`
	w := post(t, h.HandleEVRoute, "/api/v1/ev-route", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -5.0, planner.query.Temperature)

	resp := decode[RouteResponse](t, w)
	assert.Equal(t, 7800.0, resp.TotalDistanceMeters)
	assert.Len(t, resp.Legs, 1)
}

func TestHandleEVRoute_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: radius", evroute.ErrInvalidQuery), http.StatusBadRequest, "invalid_query"},
		{fmt.Errorf("anchor start: %w", routing.ErrPointTooFar), http.StatusUnprocessableEntity, "point_too_far_from_road"},
		{evroute.ErrDegenerateGraph, http.StatusUnprocessableEntity, "degenerate_graph"},
		{evroute.ErrNoConvergence, http.StatusUnprocessableEntity, "no_convergence"},
		{fmt.Errorf("%w: no charger reachable from start", evroute.ErrNoRoute), http.StatusNotFound, "no_route_found"},
		{fmt.Errorf("leg 1: %w", routing.ErrNoRoute), http.StatusNotFound, "no_route_found"},
		{evroute.ErrNoCandidate, http.StatusNotFound, "no_charger_found"},
		{fmt.Errorf("direct route: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "request_timeout"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewHandlers(&routingtest.Straight{}, &mockPlanner{err: tt.err}, StatsResponse{}, zaptest.NewLogger(t))
			w := post(t, h.HandleEVRoute, "/api/v1/ev-route", routeBody)
			assert.Equal(t, tt.status, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code, resp.Error)
			if tt.status == http.StatusInternalServerError {
				assert.Empty(t, resp.Message)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&routingtest.Straight{}, &mockPlanner{}, StatsResponse{}, nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, w).Status)
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{NumNodes: 500000, NumEdges: 1000000, NumChargers: 1200, NumChargerEdges: 90000}
	h := NewHandlers(&routingtest.Straight{}, &mockPlanner{}, stats, nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stats, decode[StatsResponse](t, w))
}

func TestServerMiddleware(t *testing.T) {
	planner := &mockPlanner{panics: true}
	cfg := DefaultConfig(":0")
	cfg.Logger = zaptest.NewLogger(t)
	srv := NewServer(cfg, NewHandlers(&routingtest.Straight{}, planner, StatsResponse{}, nil))
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = http.Post(ts.URL+"/api/v1/ev-route", "application/json", strings.NewReader(routeBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/ev-route")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
