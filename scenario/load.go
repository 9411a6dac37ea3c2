package scenario

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads a YAML scenario document.
func Decode(r io.Reader) (*Snapshot, error) {
	var raw Snapshot
	err := yaml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	return NewSnapshot(raw.Locations, raw.Clusters, raw.CDNs, raw.Requests), nil
}

func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
