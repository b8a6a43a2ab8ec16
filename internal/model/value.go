package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind tags the shape held by a Value.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "empty"
	}
}

// Value is an extracted field value: free text, a list (of text or records),
// or a structured object. The zero Value is empty.
type Value struct {
	Kind   Kind
	Text   string
	List   []Value
	Object map[string]Value
}

// Text builds a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// List builds a list value from items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindList, List: items}
}

// Strings builds a list of text values.
func Strings(ss ...string) Value {
	items := make([]Value, 0, len(ss))
	for _, s := range ss {
		items = append(items, Text(s))
	}
	return List(items...)
}

// Object builds an object value.
func Object(members map[string]Value) Value {
	if members == nil {
		members = map[string]Value{}
	}
	return Value{Kind: KindObject, Object: members}
}

// FromAny converts a decoded JSON value into a Value. Numbers and booleans
// become text.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case string:
		return Text(t)
	case bool:
		return Text(strconv.FormatBool(t))
	case float64:
		return Text(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return Text(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return Text(strconv.Itoa(t))
	case int64:
		return Text(strconv.FormatInt(t, 10))
	case json.Number:
		return Text(t.String())
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromAny(item))
		}
		return List(items...)
	case []string:
		return Strings(t...)
	case map[string]any:
		members := make(map[string]Value, len(t))
		for k, item := range t {
			members[k] = FromAny(item)
		}
		return Object(members)
	default:
		return Text(fmt.Sprint(t))
	}
}

// Any converts v back into plain Go values suitable for encoding/json.
func (v Value) Any() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindList:
		out := make([]any, 0, len(v.List))
		for _, item := range v.List {
			out = append(out, item.Any())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Object))
		for k, item := range v.Object {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON emits the natural JSON shape of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes any JSON document into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: unmarshal value")
	}
	*v = FromAny(raw)
	return nil
}

// IsEmpty reports whether v is the empty value.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// Falsy reports whether v carries no data at its top level: empty, empty
// text, empty list or empty object.
func (v Value) Falsy() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindList:
		return len(v.List) == 0
	case KindObject:
		return len(v.Object) == 0
	default:
		return true
	}
}

// Get returns the object member named key, or the empty value.
func (v Value) Get(key string) Value {
	if v.Kind != KindObject {
		return Value{}
	}
	return v.Object[key]
}

// String renders text values as-is and other kinds as compact JSON.
func (v Value) String() string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindText:
		return v.Text
	}
	b, err := json.Marshal(v.Any())
	if err != nil {
		return ""
	}
	return string(b)
}

// StringList flattens a list of text values. A single text value becomes a
// one-element list; record items are skipped.
func (v Value) StringList() []string {
	switch v.Kind {
	case KindText:
		if strings.TrimSpace(v.Text) == "" {
			return nil
		}
		return []string{v.Text}
	case KindList:
		var out []string
		for _, item := range v.List {
			if item.Kind == KindText && item.Text != "" {
				out = append(out, item.Text)
			}
		}
		return out
	default:
		return nil
	}
}

// Keys returns the object's member names in sorted order.
func (v Value) Keys() []string {
	if v.Kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.Object))
	for k := range v.Object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
