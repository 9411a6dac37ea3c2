package policy

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML policy. The named method (DefaultMethod when absent)
// supplies every field the document leaves out.
func Load(r io.Reader) (Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, err
	}

	var header struct {
		Method string `yaml:"method"`
	}
	err = yaml.Unmarshal(data, &header)
	if err != nil {
		return Policy{}, fmt.Errorf("parsing policy: %w", err)
	}
	if header.Method == "" {
		header.Method = DefaultMethod
	}

	p, err := ForMethod(header.Method)
	if err != nil {
		return Policy{}, err
	}

	err = yaml.Unmarshal(data, &p)
	if err != nil {
		return Policy{}, fmt.Errorf("parsing policy: %w", err)
	}
	p.Method = header.Method

	err = p.Validate()
	if err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}

	return p, nil
}
