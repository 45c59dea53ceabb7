package osm

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/logger"
)

// RawEdge is one directed road segment between two OSM nodes.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Length     float64 // meters
	SpeedKmh   float64
	Height     float64 // signed elevation change from -> to, meters
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// defaultSpeeds are the assumed speeds in km/h when a way carries no usable
// maxspeed tag. The keys double as the set of car-accessible highway classes.
var defaultSpeeds = map[string]float64{
	"motorway":       120,
	"motorway_link":  60,
	"trunk":          100,
	"trunk_link":     50,
	"primary":        80,
	"primary_link":   40,
	"secondary":      70,
	"secondary_link": 40,
	"tertiary":       50,
	"tertiary_link":  30,
	"unclassified":   40,
	"residential":    30,
	"living_street":  7,
	"service":        15,
}

// zoneSpeeds resolves implicit maxspeed values such as "DE:urban".
var zoneSpeeds = map[string]float64{
	"urban":         50,
	"rural":         100,
	"motorway":      130,
	"living_street": 7,
	"zone30":        30,
}

const mphToKmh = 1.609344

func isCarAccessible(tags osm.Tags) bool {
	if _, ok := defaultSpeeds[tags.Find("highway")]; !ok {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// directionFlags returns (forward, backward) from highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent, not routable.
		forward, backward = false, false
	}
	return forward, backward
}

// waySpeed returns the speed in km/h used for travel time and the WLTP band.
func waySpeed(tags osm.Tags) float64 {
	if v, ok := parseMaxSpeed(tags.Find("maxspeed")); ok {
		return v
	}
	return defaultSpeeds[tags.Find("highway")]
}

func parseMaxSpeed(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "none" || raw == "signals" || raw == "walk" {
		return 0, false
	}
	// Multiple values ("50;30") take the first.
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	if _, zone, ok := strings.Cut(raw, ":"); ok {
		v, known := zoneSpeeds[zone]
		return v, known
	}

	factor := 1.0
	if num, ok := strings.CutSuffix(raw, "mph"); ok {
		raw = strings.TrimSpace(num)
		factor = mphToKmh
	} else if num, ok := strings.CutSuffix(raw, "km/h"); ok {
		raw = strings.TrimSpace(num)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * factor, true
}

// parseElevation reads an `ele` tag such as "112", "112.5" or "112 m".
func parseElevation(raw string) (float64, bool) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "m"))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Speed    float64
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox   BBox
	Logger *zap.Logger
}

// Parse reads an OSM PBF file and returns directed edges for car routing.
// The reader is consumed twice, so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	log := logger.OrNop(opt.Logger)
	useBBox := !opt.BBox.IsZero()

	// Pass 1: ways.
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !isCarAccessible(w.Tags) {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: ids, Forward: fwd, Backward: bwd, Speed: waySpeed(w.Tags)})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Info("ways scanned", zap.Int("ways", len(ways)), zap.Int("referenced_nodes", len(referenced)))

	// Pass 2: coordinates and elevation of referenced nodes.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referenced))
	nodeLon := make(map[osm.NodeID]float64, len(referenced))
	nodeEle := make(map[osm.NodeID]float64)

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
		if ele, ok := parseElevation(n.Tags.Find("ele")); ok {
			nodeEle[n.ID] = ele
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Info("nodes scanned", zap.Int("coordinates", len(nodeLat)), zap.Int("with_elevation", len(nodeEle)))

	edges, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, nodeEle, opt.BBox, useBBox)

	if skipped > 0 {
		log.Warn("skipped edges with missing node coordinates", zap.Int("edges", skipped))
	}
	if filtered > 0 {
		log.Info("filtered edges outside bounding box", zap.Int("edges", filtered))
	}
	log.Info("built directed edges", zap.Int("edges", len(edges)))

	return &ParseResult{Edges: edges, NodeLat: nodeLat, NodeLon: nodeLon}, nil
}

// buildEdges splits ways into directed node-pair segments. Nodes without an
// elevation tag count as flat relative to their neighbor.
func buildEdges(ways []wayInfo, lat, lon, ele map[osm.NodeID]float64, bbox BBox, useBBox bool) (edges []RawEdge, skipped, filtered int) {
	for _, w := range ways {
		for i := 0; i+1 < len(w.NodeIDs); i++ {
			fromID, toID := w.NodeIDs[i], w.NodeIDs[i+1]

			fromLat, fromOk := lat[fromID]
			toLat, toOk := lat[toID]
			if !fromOk || !toOk {
				skipped++
				continue
			}
			from := geo.LatLng{Lat: fromLat, Lng: lon[fromID]}
			to := geo.LatLng{Lat: toLat, Lng: lon[toID]}

			if useBBox && (!bbox.Contains(from.Lat, from.Lng) || !bbox.Contains(to.Lat, to.Lng)) {
				filtered++
				continue
			}

			length := geo.Distance(from, to)
			var height float64
			fromEle, fromHas := ele[fromID]
			toEle, toHas := ele[toID]
			if fromHas && toHas {
				height = toEle - fromEle
			}

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Length: length, SpeedKmh: w.Speed, Height: height})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Length: length, SpeedKmh: w.Speed, Height: -height})
			}
		}
	}
	return edges, skipped, filtered
}
