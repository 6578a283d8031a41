package fhir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeResources decodes a prefetch value into resources of type T. The
// value may be a single resource, a Bundle, or JSON null/absent. Bundle
// entries keep their order; entries without a resource are skipped.
func DecodeResources[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var head Resource
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}

	if head.ResourceType != "Bundle" {
		var single T
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.ResourceType, err)
		}
		return []T{single}, nil
	}

	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	out := make([]T, 0, len(bundle.Entry))
	for i, entry := range bundle.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(entry.Resource, &item); err != nil {
			return nil, fmt.Errorf("decode bundle entry %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// DecodeResource decodes a prefetch value expected to hold at most one
// resource. A Bundle yields its first entry.
func DecodeResource[T any](raw json.RawMessage) (*T, error) {
	items, err := DecodeResources[T](raw)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}
