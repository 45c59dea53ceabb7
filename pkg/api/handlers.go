package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/azybler/ev_router/pkg/evroute"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/logger"
	"github.com/azybler/ev_router/pkg/routing"
)

const maxBodyBytes = 4096

// Planner answers EV queries.
type Planner interface {
	Plan(ctx context.Context, q evroute.Query) (*evroute.Itinerary, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router  routing.Router
	planner Planner
	stats   StatsResponse
	logger  *zap.Logger
}

// NewHandlers creates handlers over the road router and the EV planner.
func NewHandlers(router routing.Router, planner Planner, stats StatsResponse, log *zap.Logger) *Handlers {
	return &Handlers{
		router:  router,
		planner: planner,
		stats:   stats,
		logger:  logger.OrNop(log),
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, end, ok := validateEndpoints(w, req.Start, req.End)
	if !ok {
		return
	}

	ctx := r.Context()
	from, err := h.router.Anchor(ctx, start)
	if err != nil {
		h.writeFailure(w, fmt.Errorf("anchor start: %w", err))
		return
	}
	to, err := h.router.Anchor(ctx, end)
	if err != nil {
		h.writeFailure(w, fmt.Errorf("anchor end: %w", err))
		return
	}
	route, err := h.router.Route(ctx, []routing.AnchorPair{from, to})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse(route))
}

// HandleEVRoute handles POST /api/v1/ev-route.
func (h *Handlers) HandleEVRoute(w http.ResponseWriter, r *http.Request) {
	var req EVRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, end, ok := validateEndpoints(w, req.Start, req.End)
	if !ok {
		return
	}

	q := req.query(start, end)
	it, err := h.planner.Plan(r.Context(), q)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if q.Output == evroute.OutputRoute {
		writeJSON(w, http.StatusOK, routeResponse(it.Route))
		return
	}
	writeJSON(w, http.StatusOK, reportResponse(it))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func (req *EVRouteRequest) query(start, end geo.LatLng) evroute.Query {
	q := evroute.NewQuery(start, end)
	set := func(dst *float64, v *float64, scale float64) {
		if v != nil {
			*dst = *v * scale
		}
	}
	set(&q.BatteryCapacity, req.BatteryCapacityKWh, 1e6)
	set(&q.LowerPercent, req.LowerCapacityLimit, 1)
	set(&q.UpperPercent, req.UpperCapacityLimit, 1)
	set(&q.LowerLimit, req.LowerLimitKWh, 1e6)
	set(&q.UpperLimit, req.UpperLimitKWh, 1e6)
	set(&q.WLTP, req.WLTP, 1)
	set(&q.Weight, req.WeightKg, 1)
	set(&q.Temperature, req.Temperature, 1)
	set(&q.Radius, req.SearchRadius, 1)
	if req.Algo != "" {
		q.Strategy = evroute.Strategy(req.Algo)
	}
	if req.Output != "" {
		q.Output = evroute.Output(req.Output)
	}
	return q
}

func routeResponse(r *routing.Route) RouteResponse {
	resp := RouteResponse{
		TotalDistanceMeters:  r.Total.Distance,
		TotalDurationSeconds: r.Total.Duration,
		Legs:                 make([]LegJSON, 0, len(r.Legs)),
	}
	for _, leg := range r.Legs {
		resp.Legs = append(resp.Legs, LegJSON{
			DistanceMeters:  leg.Total.Distance,
			DurationSeconds: leg.Total.Duration,
			Geometry:        latLngs(leg.Locations),
		})
	}
	return resp
}

func reportResponse(it *evroute.Itinerary) ReportResponse {
	resp := ReportResponse{
		Waypoints:           make([]WaypointJSON, len(it.Waypoints)),
		Chargers:            make([]StopJSON, len(it.Stops)),
		Points:              make([]LatLngJSON, len(it.Stops)),
		BBox:                [5]float64{it.Bound.Min.Lon(), it.Bound.Min.Lat(), 0, it.Bound.Max.Lon(), it.Bound.Max.Lat()},
		ChargingTimeMinutes: it.ChargingTime / 60,
		DrivingTimeMinutes:  it.DrivingTime / 60,
		Weight:              it.Weight(),
		Consumption:         it.Consumption,
		GeoJSON:             it.GeoJSON(),
	}
	for i, wp := range it.Waypoints {
		resp.Waypoints[i] = WaypointJSON{Lat: wp.Location.Lat, Lng: wp.Location.Lng, ChargeLevel: wp.ChargeLevel}
	}
	for i, s := range it.Stops {
		c := s.Charger
		resp.Chargers[i] = StopJSON{
			ID:                  c.ID,
			Lat:                 c.Location.Lat,
			Lng:                 c.Location.Lng,
			Operator:            c.Operator,
			MaxPowerKW:          c.MaxPower / 1e6,
			ClusterSize:         c.ClusterSize(),
			ArrivalChargeLevel:  s.ArrivalLevel,
			ChargingTimeMinutes: s.ChargingTime / 60,
		}
		resp.Points[i] = LatLngJSON{Lat: c.Location.Lat, Lng: c.Location.Lng}
	}
	return resp
}

func latLngs(locs []geo.LatLng) []LatLngJSON {
	out := make([]LatLngJSON, len(locs))
	for i, ll := range locs {
		out[i] = LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
	}
	return out
}

// decodeJSON enforces the content type and a body limit. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "content type must be application/json")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return false
	}
	return true
}

func validateEndpoints(w http.ResponseWriter, s, e LatLngJSON) (geo.LatLng, geo.LatLng, bool) {
	start := geo.LatLng{Lat: s.Lat, Lng: s.Lng}
	end := geo.LatLng{Lat: e.Lat, Lng: e.Lng}
	if err := geo.Validate(start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start", err.Error())
		return start, end, false
	}
	if err := geo.Validate(end); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end", err.Error())
		return start, end, false
	}
	return start, end, true
}

// statusFor maps routing and planning errors to an HTTP status and an error
// code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, evroute.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, routing.ErrPointTooFar):
		return http.StatusUnprocessableEntity, "point_too_far_from_road"
	case errors.Is(err, evroute.ErrDegenerateGraph):
		return http.StatusUnprocessableEntity, "degenerate_graph"
	case errors.Is(err, evroute.ErrNoConvergence):
		return http.StatusUnprocessableEntity, "no_convergence"
	case errors.Is(err, evroute.ErrNoCandidate):
		return http.StatusNotFound, "no_charger_found"
	case errors.Is(err, evroute.ErrNoRoute), errors.Is(err, routing.ErrNoRoute):
		return http.StatusNotFound, "no_route_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handlers) writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		msg = ""
	}
	writeError(w, status, code, "", msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field, Message: msg})
}
