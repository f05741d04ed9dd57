package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"CAFÉ-500":      "CAFE-500",
		"Jabón Ñandú 1": "Jabon_Nandu_1",
		"a/b\\c":        "a_b_c",
		"sku_ok-1":      "sku_ok-1",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}
