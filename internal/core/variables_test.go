package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindVariables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", []string{}},
		{"single", "Translate: {text}", []string{"text"}},
		{"first occurrence order", "{b} then {a} then {b}", []string{"b", "a"}},
		{"word characters only", "{ok_1} {not-ok} {also ok}", []string{"ok_1"}},
		{"empty braces ignored", "{} {x}", []string{"x"}},
		{"nested braces", "{{inner}}", []string{"inner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindVariables(tt.text))
		})
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		values map[string]string
		want   string
	}{
		{"translate", "Translate: {text}", map[string]string{"text": "Hello"}, "Translate: Hello"},
		{"all occurrences", "{a}-{a}-{a}", map[string]string{"a": "x"}, "x-x-x"},
		{"partial values leave rest", "{a} {b}", map[string]string{"a": "1"}, "1 {b}"},
		{"no placeholders", "nothing here", map[string]string{"a": "1"}, "nothing here"},
		{"empty map", "keep {a}", map[string]string{}, "keep {a}"},
		{"nil map", "keep {a}", nil, "keep {a}"},
		{"inserted text not expanded", "{a}", map[string]string{"a": "{b}", "b": "B"}, "{b}"},
		{"empty value", "x{a}y", map[string]string{"a": ""}, "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.text, tt.values))
		})
	}
}

func TestSubstituteIdentity(t *testing.T) {
	texts := []string{"", "hello", "no {placeholders here", "json {\"a\": 1}"}
	for _, text := range texts {
		assert.Equal(t, text, Substitute(text, map[string]string{}))
	}
}

func TestSubstituteIdempotent(t *testing.T) {
	values := map[string]string{"name": "Ada", "topic": "engines", "unused": "z"}
	texts := []string{
		"Hi {name}, tell me about {topic}.",
		"{name}{name}{missing}",
		"no placeholders",
		"{topic} and {other}",
	}
	for _, text := range texts {
		once := Substitute(text, values)
		assert.Equal(t, once, Substitute(once, values), "text %q", text)
	}
}

func TestCheckBindings(t *testing.T) {
	err := CheckBindings("Hello {name} from {place}", map[string]string{"name": "Ada", "place": "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnboundVariables))
	assert.Contains(t, err.Error(), "place")

	assert.NoError(t, CheckBindings("Hello {name}", map[string]string{"name": "Ada"}))
	assert.NoError(t, CheckBindings("static", nil))
}

func TestMissingVariables(t *testing.T) {
	missing := MissingVariables("{a} {b} {c} {a}", map[string]string{"b": "x"})
	assert.Equal(t, []string{"a", "c"}, missing)
}

func TestParseAssignments(t *testing.T) {
	values, err := ParseAssignments([]string{"text=Hello", "lang=fr", "eq=a=b", "text=Bonjour"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"text": "Bonjour", "lang": "fr", "eq": "a=b"}, values)

	for _, bad := range []string{"novalue", "=x", "bad-name=1", "x} {y=1"} {
		_, err := ParseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}
