package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hiscore/internal/model"
)

// marshalAttrs serializes event attributes to canonical JSON.
func marshalAttrs(attrs model.Attrs) (string, error) {
	obj := make(map[string]any, len(attrs))
	for k, v := range attrs {
		obj[k] = v
	}
	data, err := model.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal attrs: %w", err)
	}
	return string(data), nil
}

// unmarshalAttrs parses stored event attributes.
func unmarshalAttrs(data string) (model.Attrs, error) {
	attrs := model.Attrs{}
	if data == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attrs: %w", err)
	}
	return attrs, nil
}
