package chargergraph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/azybler/ev_router/pkg/binfmt"
	"github.com/azybler/ev_router/pkg/charger"
)

const (
	edgeMagic   = "EVCGRAPH"
	edgeVersion = uint32(1)
	maxEdges    = 200_000_000
)

// ErrUnsorted is returned when an edge file is not in (Start, End) order.
var ErrUnsorted = errors.New("charger edges not sorted")

type edgeHeader struct {
	Magic       [8]byte
	Version     uint32
	NumChargers uint32
	NumEdges    uint32
}

// edgeRecord is the on-disk layout of one Edge.
type edgeRecord struct {
	Start            uint32
	End              uint32
	Weight           float64
	DrivingFactor    float64
	ResistanceFactor float64
}

// WriteEdges persists edges atomically, in the order given.
func WriteEdges(path string, numChargers int, edges []Edge) error {
	return binfmt.AtomicWrite(path, func(w io.Writer) error {
		hdr := edgeHeader{Version: edgeVersion, NumChargers: uint32(numChargers), NumEdges: uint32(len(edges))}
		copy(hdr.Magic[:], edgeMagic)
		if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		records := make([]edgeRecord, len(edges))
		for i, e := range edges {
			records[i] = edgeRecord(e)
		}
		if err := binary.Write(w, binary.LittleEndian, records); err != nil {
			return fmt.Errorf("write edges: %w", err)
		}
		return nil
	})
}

// ReadEdges loads an edge file. The stored order is kept and checked.
func ReadEdges(path string) (numChargers int, edges []Edge, err error) {
	err = binfmt.ReadVerified(path, func(r io.Reader) error {
		var hdr edgeHeader
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if string(hdr.Magic[:]) != edgeMagic {
			return fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
		}
		if hdr.Version != edgeVersion {
			return fmt.Errorf("unsupported version: %d", hdr.Version)
		}
		if hdr.NumEdges > maxEdges {
			return fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
		}

		records := make([]edgeRecord, hdr.NumEdges)
		if err := binary.Read(r, binary.LittleEndian, records); err != nil {
			return fmt.Errorf("read edges: %w", err)
		}
		edges = make([]Edge, len(records))
		for i, rec := range records {
			if rec.Start >= hdr.NumChargers || rec.End >= hdr.NumChargers {
				return fmt.Errorf("edge %d: charger out of range", i)
			}
			edges[i] = Edge(rec)
		}
		numChargers = int(hdr.NumChargers)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if !slices.IsSortedFunc(edges, Edge.Compare) {
		return 0, nil, ErrUnsorted
	}
	return numChargers, edges, nil
}

// Save writes the chargers as JSON and the edges as binary.
func (g *Graph) Save(chargersPath, edgesPath string) error {
	if err := charger.WriteFile(chargersPath, g.set); err != nil {
		return err
	}
	if err := WriteEdges(edgesPath, g.NumChargers(), g.edges); err != nil {
		return fmt.Errorf("write charger edges %s: %w", edgesPath, err)
	}
	return nil
}

// Load reads a graph written by Save.
func Load(chargersPath, edgesPath string, opts ...Option) (*Graph, error) {
	set, err := charger.ReadFile(chargersPath)
	if err != nil {
		return nil, err
	}
	n, edges, err := ReadEdges(edgesPath)
	if err != nil {
		return nil, fmt.Errorf("read charger edges %s: %w", edgesPath, err)
	}
	if n != set.Len() {
		return nil, fmt.Errorf("edge file covers %d chargers, charger file has %d", n, set.Len())
	}
	return New(set, edges, opts...)
}
