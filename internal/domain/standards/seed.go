package standards

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed/quality_standards.yaml
var defaultSeed []byte

type seedFile struct {
	Standards []QualityStandard `yaml:"standards"`
}

// DefaultSeed returns the built-in standards
func DefaultSeed() ([]QualityStandard, error) {
	return LoadSeed(bytes.NewReader(defaultSeed))
}

// LoadSeed reads a YAML document with a top-level "standards" list.
// Every entry needs an item_name and an item_type.
func LoadSeed(r io.Reader) ([]QualityStandard, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	for i, qs := range f.Standards {
		if strings.TrimSpace(qs.ItemName) == "" || strings.TrimSpace(qs.ItemType) == "" {
			return nil, fmt.Errorf("seed entry %d: item_name and item_type are required", i+1)
		}
	}
	return f.Standards, nil
}
