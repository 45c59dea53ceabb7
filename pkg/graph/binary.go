package graph

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/azybler/ev_router/pkg/binfmt"
)

const (
	magicBytes = "EVROUTER"
	version    = uint32(1)
	maxNodes   = 50_000_000
	maxEdges   = 150_000_000
)

type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// WriteBinary serializes a road graph. The file is replaced atomically.
func WriteBinary(path string, g *Graph) error {
	return binfmt.AtomicWrite(path, func(w io.Writer) error {
		hdr := fileHeader{Version: version, NumNodes: g.NumNodes, NumEdges: g.NumEdges}
		copy(hdr.Magic[:], magicBytes)
		if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		if err := binfmt.WriteSlice(w, g.NodeLat); err != nil {
			return fmt.Errorf("write NodeLat: %w", err)
		}
		if err := binfmt.WriteSlice(w, g.NodeLon); err != nil {
			return fmt.Errorf("write NodeLon: %w", err)
		}
		firstOut := g.FirstOut
		if len(firstOut) == 0 {
			firstOut = []uint32{0}
		}
		if err := binfmt.WriteSlice(w, firstOut); err != nil {
			return fmt.Errorf("write FirstOut: %w", err)
		}
		if err := binfmt.WriteSlice(w, g.Head); err != nil {
			return fmt.Errorf("write Head: %w", err)
		}
		for _, col := range []struct {
			name string
			data []float32
		}{
			{"Duration", g.Duration},
			{"Length", g.Length},
			{"DrivingFactor", g.DrivingFactor},
			{"ResistanceFactor", g.ResistanceFactor},
		} {
			if err := binfmt.WriteSlice(w, col.data); err != nil {
				return fmt.Errorf("write %s: %w", col.name, err)
			}
		}
		return nil
	})
}

// ReadBinary deserializes a road graph written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	g := &Graph{}
	err := binfmt.ReadVerified(path, func(r io.Reader) error {
		var hdr fileHeader
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if string(hdr.Magic[:]) != magicBytes {
			return fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
		}
		if hdr.Version != version {
			return fmt.Errorf("unsupported version: %d", hdr.Version)
		}
		if hdr.NumNodes > maxNodes {
			return fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
		}
		if hdr.NumEdges > maxEdges {
			return fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
		}
		g.NumNodes, g.NumEdges = hdr.NumNodes, hdr.NumEdges

		n, m := int(hdr.NumNodes), int(hdr.NumEdges)
		var err error
		if g.NodeLat, err = binfmt.ReadSlice[float64](r, n); err != nil {
			return fmt.Errorf("read NodeLat: %w", err)
		}
		if g.NodeLon, err = binfmt.ReadSlice[float64](r, n); err != nil {
			return fmt.Errorf("read NodeLon: %w", err)
		}
		if g.FirstOut, err = binfmt.ReadSlice[uint32](r, n+1); err != nil {
			return fmt.Errorf("read FirstOut: %w", err)
		}
		if g.Head, err = binfmt.ReadSlice[uint32](r, m); err != nil {
			return fmt.Errorf("read Head: %w", err)
		}
		if g.Duration, err = binfmt.ReadSlice[float32](r, m); err != nil {
			return fmt.Errorf("read Duration: %w", err)
		}
		if g.Length, err = binfmt.ReadSlice[float32](r, m); err != nil {
			return fmt.Errorf("read Length: %w", err)
		}
		if g.DrivingFactor, err = binfmt.ReadSlice[float32](r, m); err != nil {
			return fmt.Errorf("read DrivingFactor: %w", err)
		}
		if g.ResistanceFactor, err = binfmt.ReadSlice[float32](r, m); err != nil {
			return fmt.Errorf("read ResistanceFactor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if g.NumNodes > 0 {
		if err := validateCSR(g.FirstOut, g.Head, g.NumNodes); err != nil {
			return nil, fmt.Errorf("CSR invalid: %w", err)
		}
	}
	return g, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	if numEdges := firstOut[numNodes]; uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}
