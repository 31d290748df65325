// Package registry loads the function registry document (C2): a list of
// tagged-union descriptors, each either already-structured metadata or a
// free-text blurb requiring normalization by C3.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

const ObjectName = "function_metadata.json"

// Kind discriminates a descriptor's payload shape.
type Kind string

const (
	KindStructured Kind = "structured"
	KindFreeText   Kind = "freetext"
)

// Descriptor is one entry of the registry document.
type Descriptor struct {
	Kind     Kind                   `json:"kind"`
	Metadata model.FunctionMetadata `json:"metadata,omitempty"`
	Text     string                 `json:"text,omitempty"`
}

// Load fetches and decodes the registry document from the bucket.
func Load(ctx context.Context, store bucket.Store) ([]Descriptor, error) {
	raw, err := store.Read(ctx, ObjectName)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", ObjectName, err)
	}
	var descriptors []Descriptor
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", ObjectName, err)
	}
	for i, d := range descriptors {
		switch d.Kind {
		case KindStructured:
			if d.Metadata.FunctionID == "" {
				return nil, fmt.Errorf("registry: entry %d: structured descriptor missing function_id", i)
			}
		case KindFreeText:
			if d.Text == "" {
				return nil, fmt.Errorf("registry: entry %d: freetext descriptor missing text", i)
			}
		default:
			return nil, fmt.Errorf("registry: entry %d: unknown kind %q", i, d.Kind)
		}
	}
	return descriptors, nil
}
