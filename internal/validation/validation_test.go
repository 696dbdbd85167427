package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ISBN   string   `json:"isbn" validate:"required,isbn"`
	Price  float64  `json:"price" validate:"gte=0"`
	Tags   []string `json:"tags" validate:"dive,required"`
	Secret string   `json:"-" validate:"omitempty,max=3"`
}

func TestFieldsUsesJSONNames(t *testing.T) {
	err := New().Struct(row{ISBN: "123", Price: -1, Tags: []string{"ok", ""}})
	fields := Fields(err)
	require.Len(t, fields, 3)

	assert.Equal(t, FieldError{Field: "isbn", Code: "isbn", Message: "is not a valid ISBN"}, fields[0])
	assert.Equal(t, "price", fields[1].Field)
	assert.Equal(t, "must be at least 0", fields[1].Message)
	assert.Equal(t, "tags[1]", fields[2].Field)
}

func TestFieldsAcceptsValidISBN(t *testing.T) {
	assert.NoError(t, New().Struct(row{ISBN: "978-0-306-40615-7"}))
	assert.NoError(t, New().Struct(row{ISBN: "0306406152"}))
}

func TestFieldsWrapsForeignErrors(t *testing.T) {
	fields := Fields(errors.New("boom"))
	require.Len(t, fields, 1)
	assert.Equal(t, "", fields[0].Field)
	assert.Nil(t, Fields(nil))
}
