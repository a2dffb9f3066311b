package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToRecord converts v into a record with the given key, through its JSON form.
func ToRecord[T any](key string, v T) (Record, error) {
	dataBytes, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal typed data: %w", err)
	}

	// json.Number keeps epoch millis exact instead of going through float64.
	var data Metadata
	decoder := json.NewDecoder(bytes.NewReader(dataBytes))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return Record{}, fmt.Errorf("failed to convert typed data to map: %w", err)
	}

	return Record{Key: key, Data: data}, nil
}

// FromRecord unmarshals a record payload into T.
func FromRecord[T any](rec Record) (T, error) {
	var v T
	dataBytes, err := json.Marshal(rec.Data)
	if err != nil {
		return v, fmt.Errorf("metadata marshal failed: %w", err)
	}
	if err := json.Unmarshal(dataBytes, &v); err != nil {
		return v, fmt.Errorf("unmarshal to target type failed: %w", err)
	}
	return v, nil
}
