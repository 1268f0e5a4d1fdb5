// Package manifest decodes and validates AppManifest documents: the
// declarative activity graphs the engine interprets. Grounded on the
// decode-then-validate, defaulting-before-validation shape used
// elsewhere in this codebase for config loading, generalized from a
// single on-disk config file to arbitrarily many versioned app manifests.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Decode parses a YAML document into an AppManifest and validates its
// structure. Callers that need the raw, unvalidated manifest (e.g. a
// migration tool inspecting a broken one) should call yaml.Unmarshal
// directly instead.
func Decode(b []byte) (*workflow.AppManifest, error) {
	var m workflow.AppManifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, fmt.Errorf("manifest: %s@%s: %w", m.App, m.Version, err)
	}
	return &m, nil
}

// Encode is the inverse of Decode, used by the manifest store to persist
// the canonical YAML form alongside the structured columns it indexes on.
func Encode(m *workflow.AppManifest) ([]byte, error) {
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return b, nil
}
