package session

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ConditionKind is the user-declared context for a session.
type ConditionKind string

const (
	ConditionBurnt          ConditionKind = "burnt"
	ConditionWound          ConditionKind = "wound"
	ConditionSkinIrritation ConditionKind = "skin-irritation"
	ConditionBeeSting       ConditionKind = "bee-sting"
	ConditionOther          ConditionKind = "other"
)

const maxCustomLen = 120

// ConditionInfo describes a catalogue entry.
type ConditionInfo struct {
	Kind        ConditionKind `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Noun        string        `json:"noun"`
}

var catalogue = []ConditionInfo{
	{ConditionBurnt, "Burnt", "Burns from heat, fire, or hot surfaces", "burn"},
	{ConditionWound, "Wound", "Cuts, scrapes, and open injuries", "wound"},
	{ConditionSkinIrritation, "Skin Irritation", "Rashes, allergic reactions, or inflammation", "skin irritation"},
	{ConditionBeeSting, "Bee Sting", "Insect bites and stings", "bee sting"},
	{ConditionOther, "Other", "Describe your condition", "condition"},
}

// Catalogue returns the selectable conditions in display order.
func Catalogue() []ConditionInfo {
	out := make([]ConditionInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// Condition is immutable once built by NewCondition.
type Condition struct {
	kind   ConditionKind
	custom string
}

// NewCondition validates kind and, for ConditionOther, the free-text label.
func NewCondition(kind ConditionKind, custom string) (Condition, error) {
	info, ok := lookup(kind)
	if !ok {
		return Condition{}, fmt.Errorf("%w: %q", ErrUnknownCondition, kind)
	}
	if info.Kind != ConditionOther {
		return Condition{kind: info.Kind}, nil
	}
	custom = sanitize(custom)
	if custom == "" {
		return Condition{}, fmt.Errorf("%w: description required for %q", ErrUnknownCondition, kind)
	}
	custom = truncate(custom, maxCustomLen)
	return Condition{kind: ConditionOther, custom: custom}, nil
}

func (c Condition) Kind() ConditionKind { return c.kind }
func (c Condition) Custom() string      { return c.custom }
func (c Condition) IsZero() bool        { return c.kind == "" }

// Label is the noun shown to users, e.g. "bee sting" or the custom text.
func (c Condition) Label() string {
	if c.kind == ConditionOther && c.custom != "" {
		return c.custom
	}
	if info, ok := lookup(c.kind); ok {
		return info.Noun
	}
	return string(c.kind)
}

func (c Condition) String() string {
	if c.custom != "" {
		return fmt.Sprintf("%s(%s)", c.kind, c.custom)
	}
	return string(c.kind)
}

func lookup(kind ConditionKind) (ConditionInfo, bool) {
	k := ConditionKind(strings.ToLower(strings.TrimSpace(string(kind))))
	for _, info := range catalogue {
		if info.Kind == k {
			return info, true
		}
	}
	return ConditionInfo{}, false
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}

// sanitize removes control characters and surrounding whitespace.
func sanitize(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	var b strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
