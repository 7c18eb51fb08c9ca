package actionid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare identifier", raw: "send_email", want: "conn_mod_def::send_email"},
		{name: "already canonical", raw: "conn_mod_def::send_email", want: "conn_mod_def::send_email"},
		{name: "other recognized namespace", raw: "conn_def::abc", want: "conn_def::abc"},
		{name: "unrelated double colon", raw: "Foo::Bar", want: "conn_mod_def::Foo::Bar"},
		{name: "surrounding whitespace", raw: "  xyz  ", want: "conn_mod_def::xyz"},
		{name: "empty", raw: "", want: ""},
		{name: "blank", raw: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"send_email",
		"conn_mod_def::send_email",
		"conn_def::x",
		"a::b::c",
		"::leading",
		"trailing::",
		"conn_mod_def::",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestParse(t *testing.T) {
	id, ok := Parse("conn_mod_def::GmZ1dW")
	assert.True(t, ok)
	assert.Equal(t, NamespaceModelDefinition, id.Namespace)
	assert.Equal(t, "GmZ1dW", id.Rest)
	assert.Equal(t, "conn_mod_def::GmZ1dW", id.String())

	_, ok = Parse("vendor::thing")
	assert.False(t, ok)

	_, ok = Parse("plain")
	assert.False(t, ok)
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"a", "", "conn_mod_def::b", " "})
	assert.Equal(t, []string{"conn_mod_def::a", "conn_mod_def::b"}, got)
}
