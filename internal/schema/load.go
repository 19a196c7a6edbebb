package schema

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// schemaVersionConstraint is the range of schema file versions this
// build can load. Bump the major bound when the file format breaks.
const schemaVersionConstraint = ">= 1.0.0, < 2.0.0"

// ErrIncompatibleVersion is returned when a schema file declares a
// version outside the supported range.
var ErrIncompatibleVersion = errors.New("incompatible schema version")

// Load reads, parses and validates a slicer schema file.
func Load(path string) (*Slicer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML slicer schema.
func Parse(data []byte) (*Slicer, error) {
	var s Slicer
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if err := checkVersion(s.Version); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// checkVersion validates the schema file's declared version against the
// supported range. An empty version is accepted and treated as current.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: cannot parse %q: %v", ErrIncompatibleVersion, version, err)
	}
	constraint, err := semver.NewConstraint(schemaVersionConstraint)
	if err != nil {
		return fmt.Errorf("parsing version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s (supported: %s)", ErrIncompatibleVersion, version, schemaVersionConstraint)
	}
	return nil
}
