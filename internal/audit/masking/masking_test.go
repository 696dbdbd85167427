package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"email":    "reader@example.org",
		"book_id":  "123",
		" ":        "dropped",
		"contacts": map[string]any{"phone": "5551234567"},
		"quantity": 3,
	})

	assert.Equal(t, "r****@example.org", out["email"])
	assert.Equal(t, "123", out["book_id"])
	assert.Equal(t, 3, out["quantity"])
	assert.Equal(t, map[string]any{"phone": "****4567"}, out["contacts"])
	assert.NotContains(t, out, " ")
}

func TestMaskEmpty(t *testing.T) {
	assert.Nil(t, MaskMetadata(nil))
	assert.Equal(t, "", MaskEmail(" "))
	assert.Equal(t, "****", MaskSecret("abc"))
}
