package charger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/azybler/ev_router/pkg/binfmt"
)

const fileVersion = 1

type chargersFile struct {
	Version  int             `json:"version"`
	Chargers []chargerRecord `json:"chargers"`
}

// chargerRecord nests the absorbed members under their representative.
type chargerRecord struct {
	Charger
	IsCluster   bool      `json:"is_cluster"`
	ClusterSize int       `json:"cluster_size"`
	Members     []Charger `json:"members,omitempty"`
}

// Encode writes s as JSON.
func Encode(w io.Writer, s Set) error {
	f := chargersFile{Version: fileVersion, Chargers: make([]chargerRecord, len(s.Chargers))}
	for i := range s.Chargers {
		c := &s.Chargers[i]
		f.Chargers[i] = chargerRecord{
			Charger:     *c,
			IsCluster:   c.IsCluster(),
			ClusterSize: c.ClusterSize(),
			Members:     s.MembersOf(i),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// Decode reads a set written by Encode and rebuilds the arena links.
func Decode(r io.Reader) (Set, error) {
	var f chargersFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Set{}, fmt.Errorf("decode chargers: %w", err)
	}
	if f.Version != fileVersion {
		return Set{}, fmt.Errorf("unsupported chargers file version %d", f.Version)
	}

	s := Set{Chargers: make([]Charger, 0, len(f.Chargers))}
	for i, rec := range f.Chargers {
		c := rec.Charger
		c.Representative = NoRepresentative
		c.Members = nil
		for _, m := range rec.Members {
			m.Representative = i
			m.Members = nil
			c.Members = append(c.Members, len(s.Members))
			s.Members = append(s.Members, m)
		}
		s.Chargers = append(s.Chargers, c)
	}
	return s, nil
}

// WriteFile writes s to path atomically.
func WriteFile(path string, s Set) error {
	if err := binfmt.ReplaceFile(path, func(w io.Writer) error { return Encode(w, s) }); err != nil {
		return fmt.Errorf("write chargers %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a set written by WriteFile.
func ReadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("open chargers: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
