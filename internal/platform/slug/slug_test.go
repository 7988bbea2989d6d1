package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docgrind/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Closures in JavaScript": "closures-in-javascript",
		"  Café Crème ":          "cafe-creme",
		"Web/API/Fetch":          "web-api-fetch",
		"!!!":                    "untitled",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug.Make(in), in)
	}
}

func TestFromPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "array-prototype-map", slug.FromPath("/docs/Array.prototype.map.html"))
}
