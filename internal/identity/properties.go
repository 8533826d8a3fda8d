package identity

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"playercache/pkg/platform/sentinel"
)

// EncodeProperties serializes a property set into the opaque blob stores keep.
func EncodeProperties(props []Property) ([]byte, error) {
	if props == nil {
		props = []Property{}
	}
	data, err := yaml.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return data, nil
}

// DecodeProperties parses a blob written by EncodeProperties.
func DecodeProperties(data []byte) ([]Property, error) {
	var props []Property
	if err := yaml.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w: %w", sentinel.ErrFormat, err)
	}
	if props == nil {
		props = []Property{}
	}
	return props, nil
}
