package api

import "github.com/paulmach/orb/geojson"

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the standard route shape, used by POST /api/v1/route and
// by EV queries asking for "route" output.
type RouteResponse struct {
	TotalDistanceMeters  float64   `json:"total_distance_meters"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	Legs                 []LegJSON `json:"legs"`
}

// LegJSON is the path between two consecutive waypoints.
type LegJSON struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Geometry        []LatLngJSON `json:"geometry"`
}

// EVRouteRequest is the JSON body for POST /api/v1/ev-route. Omitted fields
// take the server defaults.
type EVRouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`

	BatteryCapacityKWh *float64 `json:"battery_capacity"`
	// Percent of the temperature-derated capacity.
	LowerCapacityLimit *float64 `json:"lower_capacity_limit"`
	UpperCapacityLimit *float64 `json:"upper_capacity_limit"`
	// Absolute limits in kWh; they win over the percentages.
	LowerLimitKWh *float64 `json:"lower_limit_kwh"`
	UpperLimitKWh *float64 `json:"upper_limit_kwh"`

	WLTP         *float64 `json:"wltp"`
	WeightKg     *float64 `json:"weight"`
	Temperature  *float64 `json:"temperature"`
	SearchRadius *float64 `json:"search_radius"`
	Algo         string   `json:"algo"`
	Output       string   `json:"output"`
}

// ReportResponse is the itinerary report of an EV query.
type ReportResponse struct {
	Waypoints           []WaypointJSON             `json:"waypoints"`
	Chargers            []StopJSON                 `json:"chargers"`
	BBox                [5]float64                 `json:"bbox"`
	ChargingTimeMinutes float64                    `json:"charging_time"`
	DrivingTimeMinutes  float64                    `json:"driving_time"`
	Weight              float64                    `json:"weight"`
	Consumption         float64                    `json:"consumption"` // mWh
	Points              []LatLngJSON               `json:"points"`
	GeoJSON             *geojson.FeatureCollection `json:"geojson"`
}

// WaypointJSON is a route location with the charge level on arrival.
type WaypointJSON struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	ChargeLevel float64 `json:"charge_level"`
}

// StopJSON is a charging stop.
type StopJSON struct {
	ID                  uint32  `json:"id"`
	Lat                 float64 `json:"lat"`
	Lng                 float64 `json:"lng"`
	Operator            string  `json:"operator"`
	MaxPowerKW          float64 `json:"max_power_kw"`
	ClusterSize         int     `json:"cluster_size"`
	ArrivalChargeLevel  float64 `json:"arrival_charge_level"`
	ChargingTimeMinutes float64 `json:"charging_time"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes        uint32 `json:"num_nodes"`
	NumEdges        int    `json:"num_edges"`
	NumChargers     int    `json:"num_chargers"`
	NumChargerEdges int    `json:"num_charger_edges"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
