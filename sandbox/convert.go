package sandbox

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/deepnoodle-ai/strand/vault"
	"go.starlark.net/starlark"
)

// NativeFunc is a Go function exposed to sandboxed code as a callable.
// Positional and keyword arguments arrive converted to Go values; the
// returned value is converted back into the sandbox.
type NativeFunc func(args []any, kwargs map[string]any) (any, error)

// toStarlark converts a Go value into its starlark representation.
// Unsupported types surface as an error rather than a panic, since
// capability contexts are caller-supplied.
func toStarlark(name string, value any) (starlark.Value, error) {
	switch v := value.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(v), nil
	case string:
		return starlark.String(v), nil
	case []byte:
		return starlark.Bytes(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int8:
		return starlark.MakeInt(int(v)), nil
	case int16:
		return starlark.MakeInt(int(v)), nil
	case int32:
		return starlark.MakeInt(int(v)), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case uint:
		return starlark.MakeUint(v), nil
	case uint8:
		return starlark.MakeUint(uint(v)), nil
	case uint16:
		return starlark.MakeUint(uint(v)), nil
	case uint32:
		return starlark.MakeUint(uint(v)), nil
	case uint64:
		return starlark.MakeUint64(v), nil
	case float32:
		return starlark.Float(v), nil
	case float64:
		return starlark.Float(v), nil
	case *big.Int:
		return starlark.MakeBigInt(v), nil
	case time.Time:
		return starlark.String(v.Format(time.RFC3339Nano)), nil
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			conv, err := toStarlark(name, e)
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(v))
		// Deterministic insertion order for stable rendering
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			conv, err := toStarlark(name, v[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), conv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case NativeFunc:
		return wrapNative(name, v), nil
	case func(args []any, kwargs map[string]any) (any, error):
		return wrapNative(name, NativeFunc(v)), nil
	case starlark.Value:
		return v, nil
	}
	return nil, fmt.Errorf("capability %q has unsupported type %T", name, value)
}

// fromStarlark converts a starlark value back into a plain Go value.
// Integers become int64 when they fit and *big.Int otherwise; functions
// become structural records since they cannot cross the boundary.
func fromStarlark(value starlark.Value) any {
	switch v := value.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.String:
		return string(v)
	case starlark.Bytes:
		return []byte(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		return new(big.Int).Set(v.BigInt())
	case starlark.Float:
		return float64(v)
	case *starlark.List:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = fromStarlark(v.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = fromStarlark(item)
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key := fmt.Sprintf("%v", fromStarlark(item[0]))
			out[key] = fromStarlark(item[1])
		}
		return out
	case *starlark.Function:
		return vault.FuncRecord{
			Name:  v.Name(),
			Arity: v.NumParams(),
		}
	case *starlark.Builtin:
		return vault.FuncRecord{Name: v.Name()}
	}
	return value.String()
}

// toolError marks a failure raised by an injected capability so that the
// engine can classify it separately from guest code failures.
type toolError struct {
	name string
	err  error
}

func (e *toolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.name, e.err)
}

func (e *toolError) Unwrap() error { return e.err }

func wrapNative(name string, fn NativeFunc) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		goArgs := make([]any, len(args))
		for i, arg := range args {
			goArgs[i] = fromStarlark(arg)
		}
		var goKwargs map[string]any
		if len(kwargs) > 0 {
			goKwargs = make(map[string]any, len(kwargs))
			for _, kv := range kwargs {
				key, _ := fromStarlark(kv[0]).(string)
				goKwargs[key] = fromStarlark(kv[1])
			}
		}
		result, err := fn(goArgs, goKwargs)
		if err != nil {
			return nil, &toolError{name: b.Name(), err: err}
		}
		return toStarlark(b.Name(), result)
	})
}
