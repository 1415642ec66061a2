package temporal

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a temporal domain configuration from a YAML file. An empty path
// or a missing file returns (nil, nil): the system then runs in generic mode.
func Load(path string) (*Domain, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read domain config: %w", err)
	}

	var d Domain
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse domain config: %w", err)
	}

	if err := Validate(&d); err != nil {
		return nil, err
	}

	return &d, nil
}

// Validate checks the invariants a loaded domain configuration must satisfy.
func Validate(d *Domain) error {
	if d == nil {
		return nil
	}

	if d.Name == "" {
		return fmt.Errorf("domain config: name is required")
	}

	if d.MetadataSchema.TemporalField == "" {
		return fmt.Errorf("domain config: metadata_schema.temporal_field is required")
	}

	if d.MetadataSchema.CurrentPeriod == d.MetadataSchema.HistoricalPeriod {
		return fmt.Errorf("domain config: current_period and historical_period must be distinct")
	}

	for id, def := range d.PeriodIdentifiers {
		if def.TemporalType != CategoryCurrent && def.TemporalType != CategoryHistorical {
			return fmt.Errorf("domain config: period %q has invalid temporal_type %q", id, def.TemporalType)
		}
	}

	return nil
}
