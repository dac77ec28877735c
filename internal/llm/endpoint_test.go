package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://x", "http://x"},
		{"http://x/", "http://x"},
		{"http://x/api", "http://x"},
		{"http://x/api/", "http://x"},
		{"http://x/api/v1", "http://x"},
		{"http://x/api/v1/", "http://x"},
		{"http://x/api/v1/generate", "http://x"},
		{"http://x/api/v1/generate/", "http://x"},
		{"  http://x:5000/api  ", "http://x:5000"},
		{"sk-abc123", "sk-abc123"},
		{"/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEndpoint(tt.in))
		})
	}
}

func TestBuildStops(t *testing.T) {
	assert.Equal(t, []string{"Sam:", "You:", "<START>", "<END>"}, BuildStops("Sam", nil, false))
	assert.Equal(t, []string{"Sam:", "You:", "<START>", "<END>", "[", "]"}, BuildStops("Sam", nil, true))
	assert.Equal(t, []string{"You:", "<START>", "<END>", "Narrator:"}, BuildStops("Sam", []string{"Narrator:"}, false))
}
