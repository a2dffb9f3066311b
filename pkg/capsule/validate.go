package capsule

import (
	"encoding/json"
	"fmt"
	"math"
)

// Result is the verdict of a schema check. A failing Result names the first
// violated field path, such as "notes[3].updatedAt".
type Result struct {
	OK     bool
	Field  string
	Reason string
}

var valid = Result{OK: true}

func fail(field, reason string) Result {
	return Result{Field: field, Reason: reason}
}

func (r Result) err() error {
	if r.OK {
		return nil
	}
	return &PayloadError{Kind: ErrPayloadInvalid, Field: r.Field, Reason: r.Reason}
}

// ValidateNote checks that v, a decoded JSON value, has the shape of a Note.
func ValidateNote(v any) Result {
	return validateNote(v, "")
}

// ValidateSticker checks that v, a decoded JSON value, has the shape of a Sticker.
func ValidateSticker(v any) Result {
	return validateSticker(v, "")
}

// ValidateBundle checks that v, a decoded JSON value, is an export bundle.
// Every note and sticker must pass; there is no partial acceptance.
func ValidateBundle(v any) Result {
	obj, ok := v.(map[string]any)
	if !ok {
		return fail("", "bundle must be an object")
	}
	if r := requireInteger(obj, "", "createdAt"); !r.OK {
		return r
	}

	notes, ok := obj["notes"].([]any)
	if !ok {
		return fail("notes", "must be an array")
	}
	for i, n := range notes {
		if r := validateNote(n, fmt.Sprintf("notes[%d]", i)); !r.OK {
			return r
		}
	}

	stickers, ok := obj["stickers"].([]any)
	if !ok {
		return fail("stickers", "must be an array")
	}
	for i, s := range stickers {
		if r := validateSticker(s, fmt.Sprintf("stickers[%d]", i)); !r.OK {
			return r
		}
	}

	theme, present := obj["themeId"]
	if !present {
		return fail("themeId", "is required (null or string)")
	}
	if _, isString := theme.(string); theme != nil && !isString {
		return fail("themeId", "must be null or a string")
	}
	return valid
}

// IsNote reports whether v has the shape of a Note.
func IsNote(v any) bool { return ValidateNote(v).OK }

// IsSticker reports whether v has the shape of a Sticker.
func IsSticker(v any) bool { return ValidateSticker(v).OK }

// IsBundle reports whether v is an export bundle.
func IsBundle(v any) bool { return ValidateBundle(v).OK }

func validateNote(v any, path string) Result {
	obj, ok := v.(map[string]any)
	if !ok {
		return fail(path, "note must be an object")
	}
	for _, key := range []string{"id", "title", "content"} {
		if r := requireString(obj, path, key); !r.OK {
			return r
		}
	}
	for _, key := range []string{"createdAt", "updatedAt"} {
		if r := requireInteger(obj, path, key); !r.OK {
			return r
		}
	}
	for _, key := range []string{"color", "echoParentId"} {
		if _, present := obj[key]; present {
			if r := requireString(obj, path, key); !r.OK {
				return r
			}
		}
	}
	if _, present := obj["lastEchoCheck"]; present {
		if r := requireInteger(obj, path, "lastEchoCheck"); !r.OK {
			return r
		}
	}
	return valid
}

func validateSticker(v any, path string) Result {
	obj, ok := v.(map[string]any)
	if !ok {
		return fail(path, "sticker must be an object")
	}
	for _, key := range []string{"id", "asset"} {
		if r := requireString(obj, path, key); !r.OK {
			return r
		}
	}
	for _, key := range []string{"x", "y", "scale", "rotation", "driftSeed"} {
		if r := requireNumber(obj, path, key); !r.OK {
			return r
		}
	}
	if r := requireInteger(obj, path, "createdAt"); !r.OK {
		return r
	}
	if _, present := obj["zIndex"]; present {
		if r := requireInteger(obj, path, "zIndex"); !r.OK {
			return r
		}
	}
	return valid
}

func fieldPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func requireString(obj map[string]any, path, key string) Result {
	if _, ok := obj[key].(string); !ok {
		return fail(fieldPath(path, key), "must be a string")
	}
	return valid
}

func requireNumber(obj map[string]any, path, key string) Result {
	if !isNumber(obj[key]) {
		return fail(fieldPath(path, key), "must be a number")
	}
	return valid
}

func requireInteger(obj map[string]any, path, key string) Result {
	if !isInteger(obj[key]) {
		return fail(fieldPath(path, key), "must be an integer")
	}
	return valid
}

// isNumber accepts the number forms a decoded JSON value can take.
func isNumber(v any) bool {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return err == nil && !math.IsInf(f, 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32, int, int32, int64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case json.Number:
		_, err := n.Int64()
		return err == nil
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) <= 1<<53
	case int, int32, int64:
		return true
	}
	return false
}
