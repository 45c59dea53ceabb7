package charger

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/logger"
)

// Register column names. The typo in colType is the register's own.
const (
	colLat      = "Breitengrad"
	colLng      = "Längengrad"
	colOperator = "Betreiber"
	colPower    = "Anschlussleistung"
	colType     = "Art der Ladeeinrichung"
	colCount    = "Anzahl Ladepunkte"

	typeNormal = "Normalladeeinrichtung"
	typeFast   = "Schnellladeeinrichtung"

	// preambleLines precede the header row in the published register.
	preambleLines = 10
	maxPlugs      = 4
)

// ErrMissingColumn is returned when the register header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// CSVOptions controls the register import.
type CSVOptions struct {
	// MaxChargingPower caps every plug's power, in mW. Zero means no cap.
	MaxChargingPower float64
	// PlugTypes keeps only chargers offering one of these connectors.
	PlugTypes []PlugType
	Logger    *zap.Logger
}

// ParseBNetzA reads the Bundesnetzagentur charger register: ISO-8859-1,
// ';'-separated, decimal commas, header after a fixed preamble. Broken rows
// are logged and skipped. Chargers are numbered in file order.
func ParseBNetzA(r io.Reader, opts CSVOptions) ([]Charger, error) {
	log := logger.OrNop(opts.Logger)

	br := bufio.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	for i := 0; i < preambleLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("skip preamble line %d: %w", i+1, err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colLat, colLng, colType, colCount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	var chargers []Charger
	var skipped int
	for line := preambleLines + 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := csvRow{cols: cols, record: record}
		c, ok, err := parseRow(row, uint32(len(chargers)), opts, log)
		if err != nil {
			log.Warn("skipping register row", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		if ok {
			chargers = append(chargers, c)
		}
	}

	log.Info("parsed charger register",
		zap.Int("chargers", len(chargers)),
		zap.Int("skipped", skipped),
	)
	return chargers, nil
}

type csvRow struct {
	cols   map[string]int
	record []string
}

func (r csvRow) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

// parseRow returns ok == false for rows dropped by the plug type filter.
func parseRow(row csvRow, id uint32, opts CSVOptions, log *zap.Logger) (Charger, bool, error) {
	lat, err := parseDecimal(row.get(colLat))
	if err != nil {
		return Charger{}, false, fmt.Errorf("latitude: %w", err)
	}
	lng, err := parseDecimal(row.get(colLng))
	if err != nil {
		return Charger{}, false, fmt.Errorf("longitude: %w", err)
	}
	loc := geo.LatLng{Lat: lat, Lng: lng}
	if err := geo.Validate(loc); err != nil {
		return Charger{}, false, err
	}

	var fast bool
	switch kind := row.get(colType); kind {
	case typeNormal:
	case typeFast:
		fast = true
	default:
		return Charger{}, false, fmt.Errorf("unknown charger type %q", kind)
	}

	count, err := strconv.Atoi(row.get(colCount))
	if err != nil {
		return Charger{}, false, fmt.Errorf("plug count: %w", err)
	}
	if count <= 0 {
		return Charger{}, false, errors.New("no charging points")
	}

	var plugs []Plug
	for i := 1; i <= min(count, maxPlugs); i++ {
		p, ok, err := parsePlug(row, i, opts.MaxChargingPower)
		if err != nil {
			log.Warn("skipping plug", zap.Int("plug", i), zap.Stringer("location", loc), zap.Error(err))
			continue
		}
		if ok {
			plugs = append(plugs, p)
		}
	}
	if len(plugs) == 0 {
		return Charger{}, false, ErrNoPlugs
	}
	if len(plugs) != count {
		log.Warn("charger plug count mismatch",
			zap.Stringer("location", loc),
			zap.Int("declared", count),
			zap.Int("parsed", len(plugs)),
		)
	}

	var total float64
	if raw := row.get(colPower); raw != "" {
		kw, err := parseDecimal(raw)
		if err != nil {
			return Charger{}, false, fmt.Errorf("connected load: %w", err)
		}
		total = kw * 1e6
	}

	c := New(id, loc, row.get(colOperator), total, fast, plugs)
	if len(opts.PlugTypes) > 0 && !c.HasAnyPlugType(opts.PlugTypes) {
		return Charger{}, false, nil
	}
	if c.TotalPower <= 0 {
		for _, p := range c.Plugs {
			c.TotalPower += p.Power
		}
	}
	return c, true, c.Validate()
}

// parsePlug reads charging point i. An empty connector column means the
// point is absent.
func parsePlug(row csvRow, i int, maxPower float64) (Plug, bool, error) {
	names := row.get(fmt.Sprintf("Steckertypen%d", i))
	if names == "" {
		return Plug{}, false, nil
	}

	var types []PlugType
	for _, name := range strings.FieldsFunc(names, func(r rune) bool { return r == ',' || r == ';' }) {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := ParsePlugType(name)
		if err != nil {
			return Plug{}, false, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return Plug{}, false, nil
	}

	kw, err := parseDecimal(row.get(fmt.Sprintf("P%d [kW]", i)))
	if err != nil {
		return Plug{}, false, fmt.Errorf("power: %w", err)
	}
	power := kw * 1e6
	if maxPower > 0 {
		power = min(power, maxPower)
	}
	if power <= 0 {
		return Plug{}, false, ErrInvalidPower
	}
	return Plug{Power: power, Types: types}, true, nil
}

// parseDecimal accepts both decimal commas and points.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
