package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "canonical lowercase", token: "3f2504e0-4f89-41d3-9a0c-0305e82c3301", want: true},
		{name: "uppercase", token: "3F2504E0-4F89-41D3-9A0C-0305E82C3301", want: true},
		{name: "empty", token: "", want: false},
		{name: "not a uuid", token: "not-a-uuid", want: false},
		{name: "missing group", token: "3f2504e0-4f89-41d3-0305e82c3301", want: false},
		{name: "non hex", token: "zf2504e0-4f89-41d3-9a0c-0305e82c3301", want: false},
		{name: "braced", token: "{3f2504e0-4f89-41d3-9a0c-0305e82c3301}", want: false},
		{name: "trailing garbage", token: "3f2504e0-4f89-41d3-9a0c-0305e82c3301x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.token))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize("not-a-uuid"))
	assert.Nil(t, Normalize(""))

	got := Normalize(" 3F2504E0-4F89-41D3-9A0C-0305E82C3301 ")
	require.NotNil(t, got)
	assert.Equal(t, "3f2504e0-4f89-41d3-9a0c-0305e82c3301", *got)
}
