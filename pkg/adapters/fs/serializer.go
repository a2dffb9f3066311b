package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/geonotes98/geonotes/pkg/core"
)

// Serializer defines how a whole collection file is read and written.
type Serializer interface {
	// Ext is the file extension, including the dot.
	Ext() string
	// Parse decodes a file into its ordered items.
	Parse(data []byte) ([]core.Metadata, error)
	// Serialize encodes ordered items into file contents.
	Serialize(items []core.Metadata) ([]byte, error)
}

type collectionFile struct {
	collection core.Collection
	keyField   string
	serializer Serializer
}

func (f collectionFile) name() string {
	return string(f.collection) + f.serializer.Ext()
}

var keyFields = map[core.Collection]string{
	core.CollectionNotes:    "id",
	core.CollectionStickers: "id",
	core.CollectionSettings: "key",
}

// DefaultSerializers returns the standard file format per collection.
// Settings are kept in YAML so they stay hand-editable.
func DefaultSerializers() map[core.Collection]Serializer {
	return map[core.Collection]Serializer{
		core.CollectionNotes:    &JSONSerializer{},
		core.CollectionStickers: &JSONSerializer{},
		core.CollectionSettings: &YAMLSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer stores a collection as a JSON array.
// Numbers are decoded as json.Number to keep millisecond timestamps exact.
type JSONSerializer struct{}

func (s *JSONSerializer) Ext() string { return ".json" }

func (s *JSONSerializer) Parse(data []byte) ([]core.Metadata, error) {
	var items []core.Metadata
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return items, nil
}

func (s *JSONSerializer) Serialize(items []core.Metadata) ([]byte, error) {
	if items == nil {
		items = []core.Metadata{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

// YAMLSerializer stores a collection as a YAML sequence of mappings.
type YAMLSerializer struct{}

func (s *YAMLSerializer) Ext() string { return ".yaml" }

func (s *YAMLSerializer) Parse(data []byte) ([]core.Metadata, error) {
	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	items := make([]core.Metadata, 0, len(raw))
	for _, item := range raw {
		items = append(items, recursiveNormalize(item).(core.Metadata))
	}
	return items, nil
}

func (s *YAMLSerializer) Serialize(items []core.Metadata) ([]byte, error) {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, yamlFriendly(item))
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// recursiveNormalize aligns YAML-decoded values with what the JSON path
// produces: numbers become json.Number, mappings become core.Metadata.
func recursiveNormalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(core.Metadata, len(val))
		for k, item := range val {
			m[k] = recursiveNormalize(item)
		}
		return m
	case core.Metadata:
		return recursiveNormalize(map[string]interface{}(val))
	case map[interface{}]interface{}:
		m := make(core.Metadata, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = recursiveNormalize(item)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = recursiveNormalize(item)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(val))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case float64:
		return json.Number(strconv.FormatFloat(val, 'g', -1, 64))
	default:
		return v
	}
}

// yamlFriendly turns json.Number back into native numbers, which yaml.v3
// would otherwise quote as strings.
func yamlFriendly(v interface{}) interface{} {
	switch val := v.(type) {
	case core.Metadata:
		return yamlFriendly(map[string]interface{}(val))
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[k] = yamlFriendly(item)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = yamlFriendly(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}
