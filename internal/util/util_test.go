package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagMatch(t *testing.T) {
	tests := []struct {
		name     string
		inputTag string
		match    string
		want     bool
	}{
		{"Exact match", "foo", "foo", true},
		{"Prefix match", "foobar", "foo*", true},
		{"Suffix match", "foobar", "*bar", true},
		{"Middle match", "foobarbaz", "foo*baz", true},
		{"Multiple wildcards", "foobarbaz", "f*bar*baz", true},
		{"No match", "foobar", "baz*", false},
		{"Empty pattern", "foobar", "", false},
		{"Empty input", "", "*", true},
		{"Watcher prefix", "nginx-access", "nginx-*", true},
		{"Other watcher", "app.worker", "nginx-*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TagMatch(tt.inputTag, tt.match)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustString(t *testing.T) {
	assert.Equal(t, "hello", MustString("hello"))
	assert.Equal(t, "", MustString(nil))
	assert.Panics(t, func() { MustString(42) }, "Should panic on non-string type")
}
