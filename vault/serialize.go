package vault

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"reflect"
	"time"
)

// Unserializable is the last-resort serialized form for values that
// cannot be encoded. Storage never fails outright.
const Unserializable = `"[Unserializable Value]"`

// FuncRecord is the structural representation of a function value:
// functions are captured by name, arity, and source text rather than
// being execute-serialized.
type FuncRecord struct {
	Name   string `json:"name"`
	Arity  int    `json:"arity"`
	Source string `json:"source,omitempty"`
}

// CycleMarker stands in for second-and-later occurrences of an object
// already visited during serialization.
type CycleMarker struct{}

// Serialize encodes a value as a round-trippable JSON string. Cyclic
// references are detected and replaced with an explicit cycle marker,
// function values become structured records, and big integers are tagged.
// Serialize never fails; unencodable values degrade to a marker string.
func Serialize(value any) string {
	tree := encode(value, map[uintptr]bool{})
	data, err := json.Marshal(tree)
	if err != nil {
		return Unserializable
	}
	return string(data)
}

func encode(value any, seen map[uintptr]bool) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case *big.Int:
		if v == nil {
			return nil
		}
		return map[string]any{"$bigint": v.String()}
	case big.Int:
		return map[string]any{"$bigint": v.String()}
	case time.Time:
		return map[string]any{"$time": v.Format(time.RFC3339Nano)}
	case []byte:
		return map[string]any{"$bytes": base64.StdEncoding.EncodeToString(v)}
	case FuncRecord:
		return map[string]any{"$func": map[string]any{
			"name": v.Name, "arity": v.Arity, "source": v.Source,
		}}
	case *FuncRecord:
		if v == nil {
			return nil
		}
		return encode(*v, seen)
	case CycleMarker:
		return map[string]any{"$cycle": true}
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			ptr := rv.Pointer()
			if seen[ptr] {
				return map[string]any{"$cycle": true}
			}
			seen[ptr] = true
		}
		return encode(rv.Elem().Interface(), seen)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil
			}
			// Zero-size allocations share one runtime address, so two
			// distinct empty slices would look like a cycle. An empty
			// slice cannot participate in one, so skip tracking it.
			if rv.Len() > 0 {
				ptr := rv.Pointer()
				if seen[ptr] {
					return map[string]any{"$cycle": true}
				}
				seen[ptr] = true
			}
		}
		items := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = encode(rv.Index(i).Interface(), seen)
		}
		return items

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if seen[ptr] {
			return map[string]any{"$cycle": true}
		}
		seen[ptr] = true
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				return "[Unserializable Value]"
			}
			out[key] = encode(iter.Value().Interface(), seen)
		}
		return out

	case reflect.Struct:
		// Plain structs take the standard JSON path.
		data, err := json.Marshal(value)
		if err != nil {
			return "[Unserializable Value]"
		}
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			return "[Unserializable Value]"
		}
		return tree

	case reflect.Func:
		name := ""
		arity := 0
		if rv.Type().Kind() == reflect.Func {
			arity = rv.Type().NumIn()
		}
		return encode(FuncRecord{Name: name, Arity: arity}, seen)
	}

	return "[Unserializable Value]"
}

// Deserialize decodes a string produced by Serialize back into a value.
// Tagged records become their Go counterparts: *big.Int, time.Time,
// []byte, FuncRecord, and CycleMarker.
func Deserialize(s string) (any, error) {
	var tree any
	if err := json.Unmarshal([]byte(s), &tree); err != nil {
		return nil, err
	}
	return decode(tree), nil
}

func decode(tree any) any {
	switch v := tree.(type) {
	case map[string]any:
		if len(v) == 1 {
			if raw, ok := v["$bigint"].(string); ok {
				if n, ok := new(big.Int).SetString(raw, 10); ok {
					return n
				}
			}
			if raw, ok := v["$time"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
					return t
				}
			}
			if raw, ok := v["$bytes"].(string); ok {
				if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
					return b
				}
			}
			if raw, ok := v["$func"].(map[string]any); ok {
				rec := FuncRecord{}
				rec.Name, _ = raw["name"].(string)
				if arity, ok := raw["arity"].(float64); ok {
					rec.Arity = int(arity)
				}
				rec.Source, _ = raw["source"].(string)
				return rec
			}
			if _, ok := v["$cycle"]; ok {
				return CycleMarker{}
			}
		}
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = decode(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = decode(item)
		}
		return out
	default:
		return tree
	}
}

// TypeOf returns the semantic and raw type tags for a value.
func TypeOf(value any) (semantic string, raw string) {
	switch value.(type) {
	case nil:
		return "null", "nil"
	case string:
		return "text", "string"
	case bool:
		return "boolean", "bool"
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return "number", reflect.TypeOf(value).Kind().String()
	case *big.Int, big.Int:
		return "number", "bigint"
	case time.Time:
		return "timestamp", "time"
	case []byte:
		return "binary", "bytes"
	case FuncRecord, *FuncRecord:
		return "function", "func"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "array", rv.Kind().String()
	case reflect.Map, reflect.Struct:
		return "object", rv.Kind().String()
	case reflect.Func:
		return "function", "func"
	case reflect.Pointer:
		if rv.IsNil() {
			return "null", "nil"
		}
		return TypeOf(rv.Elem().Interface())
	}
	return "unknown", rv.Kind().String()
}

// statsOf measures a value cheaply: character length for strings,
// element or key counts for collections.
func statsOf(value any, serialized string) Stats {
	switch v := value.(type) {
	case string:
		return Stats{Length: len([]rune(v))}
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return Stats{Length: rv.Len()}
	case reflect.Map:
		return Stats{Length: rv.Len(), Keys: rv.Len()}
	}
	return Stats{Length: len(serialized)}
}
