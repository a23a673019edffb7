// Package slots parses resolver pipeline slot keys.
// A slot key addresses one overridable step inside a generated resolver
// pipeline and has exactly six dot-delimited parts:
//
//	{typeName}.{fieldName}.{slotName}.{slotIndex}.{req|res}.vtl
//
// Keys are parsed into a tagged result, never split best-effort.
package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TemplateType is the mapping-template kind of a slot entry.
type TemplateType string

const (
	TemplateRequest  TemplateType = "req.vtl"
	TemplateResponse TemplateType = "res.vtl"
)

// KnownSlotNames are the pipeline extension points the generator understands.
// Unknown names still parse; they only produce an advisory diagnostic.
var KnownSlotNames = []string{
	"init",
	"preAuth",
	"auth",
	"postAuth",
	"preDataLoad",
	"postDataLoad",
	"preUpdate",
	"postUpdate",
	"finish",
}

// MalformedSlotKeyError reports a slot key that does not resolve to the
// six-part convention.
type MalformedSlotKeyError struct {
	Key    string
	Reason string
}

func (e *MalformedSlotKeyError) Error() string {
	return fmt.Sprintf("malformed slot key %q: %s", e.Key, e.Reason)
}

// ParsedSlotKey is the strict 5-tuple form of a slot key.
type ParsedSlotKey struct {
	TypeName     string
	FieldName    string
	SlotName     string
	SlotIndex    int
	TemplateType TemplateType
}

// String re-assembles the canonical six-part key.
func (k ParsedSlotKey) String() string {
	return fmt.Sprintf("%s.%s.%s.%d.%s", k.TypeName, k.FieldName, k.SlotName, k.SlotIndex, k.TemplateType)
}

// FunctionSlot is the export-facing representation of one pipeline step.
type FunctionSlot struct {
	TypeName     string       `json:"typeName"`
	FieldName    string       `json:"fieldName"`
	SlotName     string       `json:"slotName"`
	SlotIndex    int          `json:"slotIndex"`
	TemplateType TemplateType `json:"templateType"`
	ResolverCode string       `json:"resolverCode"`
}

// ParseKey validates and parses a raw six-part slot key.
func ParseKey(raw string) (ParsedSlotKey, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 6 {
		return ParsedSlotKey{}, &MalformedSlotKeyError{
			Key:    raw,
			Reason: fmt.Sprintf("expected 6 dot-delimited parts, got %d", len(parts)),
		}
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return ParsedSlotKey{}, &MalformedSlotKeyError{
				Key:    raw,
				Reason: fmt.Sprintf("part %d is empty", i+1),
			}
		}
		// Keys double as asset file names; a separator would escape the
		// resolvers directory.
		if strings.ContainsAny(p, `/\`) {
			return ParsedSlotKey{}, &MalformedSlotKeyError{
				Key:    raw,
				Reason: fmt.Sprintf("part %d contains a path separator", i+1),
			}
		}
	}
	idx, err := strconv.Atoi(parts[3])
	if err != nil || idx < 0 {
		return ParsedSlotKey{}, &MalformedSlotKeyError{
			Key:    raw,
			Reason: fmt.Sprintf("slot index %q is not a non-negative integer", parts[3]),
		}
	}
	tt := TemplateType(parts[4] + "." + parts[5])
	if tt != TemplateRequest && tt != TemplateResponse {
		return ParsedSlotKey{}, &MalformedSlotKeyError{
			Key:    raw,
			Reason: fmt.Sprintf("template type %q is not one of req.vtl, res.vtl", string(tt)),
		}
	}
	return ParsedSlotKey{
		TypeName:     parts[0],
		FieldName:    parts[1],
		SlotName:     parts[2],
		SlotIndex:    idx,
		TemplateType: tt,
	}, nil
}

// IsGeneratedSlotKey reports whether raw follows the six-part pipeline-step
// convention. Four-part unit resolver keys and free-form overrides do not.
func IsGeneratedSlotKey(raw string) bool {
	_, err := ParseKey(raw)
	return err == nil
}

// UserSlot is one caller-supplied override for a named pipeline slot.
type UserSlot struct {
	Key  ParsedSlotKey
	Code string
}

// UserSlots is the normalized override mapping transformers splice into
// generated pipelines. Order holds keys in first-seen order so downstream
// output stays reproducible.
type UserSlots struct {
	byKey map[string]UserSlot
	Order []ParsedSlotKey
}

// ParseUserSlots parses a mapping of raw slot key to override code.
// It fails on the first malformed key; partial results are never returned.
func ParseUserSlots(raw map[string]string) (*UserSlots, error) {
	us := &UserSlots{byKey: make(map[string]UserSlot, len(raw))}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// Map iteration order is random; sort so errors and Order are stable.
	sort.Strings(keys)

	for _, k := range keys {
		parsed, err := ParseKey(k)
		if err != nil {
			return nil, err
		}
		canonical := parsed.String()
		if _, ok := us.byKey[canonical]; ok {
			return nil, &MalformedSlotKeyError{Key: k, Reason: "duplicate slot key"}
		}
		us.byKey[canonical] = UserSlot{Key: parsed, Code: raw[k]}
		us.Order = append(us.Order, parsed)
	}
	return us, nil
}

// Lookup returns the override for the canonical key form, if any.
func (u *UserSlots) Lookup(key string) (UserSlot, bool) {
	if u == nil {
		return UserSlot{}, false
	}
	s, ok := u.byKey[key]
	return s, ok
}

// Len returns the number of parsed overrides.
func (u *UserSlots) Len() int {
	if u == nil {
		return 0
	}
	return len(u.byKey)
}

// IsKnownSlotName reports whether name is a generator-understood slot.
func IsKnownSlotName(name string) bool {
	for _, s := range KnownSlotNames {
		if s == name {
			return true
		}
	}
	return false
}

