// Package validate decides whether an extracted value is usable and scrubs
// placeholder answers out of it.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/atlas/internal/model"
)

// MinTextLength is the shortest text accepted as data.
const MinTextLength = 2

var placeholders = map[string]bool{
	"not found":      true,
	"n/a":            true,
	"unknown":        true,
	"none":           true,
	"no information": true,
}

// IsPlaceholder reports whether s is a known "no data" answer.
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// NeedsRetry reports whether v looks empty: absent, text shorter than two
// characters, an empty list, or an object whose members are all falsy.
func NeedsRetry(v model.Value) bool {
	switch v.Kind {
	case model.KindText:
		return utf8.RuneCountInString(v.Text) < MinTextLength
	case model.KindList:
		return len(v.List) == 0
	case model.KindObject:
		for _, member := range v.Object {
			if !member.Falsy() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Clean replaces placeholder texts with empty text, drops falsy list items
// and cleans object members in place of their keys. Clean is idempotent.
func Clean(v model.Value) model.Value {
	switch v.Kind {
	case model.KindText:
		if IsPlaceholder(v.Text) {
			return model.Text("")
		}
		return v
	case model.KindList:
		items := make([]model.Value, 0, len(v.List))
		for _, item := range v.List {
			c := Clean(item)
			if c.Falsy() {
				continue
			}
			items = append(items, c)
		}
		return model.List(items...)
	case model.KindObject:
		members := make(map[string]model.Value, len(v.Object))
		for k, member := range v.Object {
			members[k] = Clean(member)
		}
		return model.Object(members)
	default:
		return v
	}
}
