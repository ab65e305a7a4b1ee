package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUpdate(t *testing.T) {
	p := NewPatch().Set("name", "Phone").Set("price", 10).Set("name", "Handset")

	query, args := buildUpdate("products", p, "id-1", "id, name")

	assert.Equal(t,
		"UPDATE products SET name = $1, price = $2, updated_at = now() WHERE id = $3 RETURNING id, name",
		query)
	assert.Equal(t, []any{"Handset", 10, "id-1"}, args)
}

func TestPatchEmpty(t *testing.T) {
	var nilPatch *Patch
	assert.True(t, nilPatch.Empty())
	assert.True(t, NewPatch().Empty())
	assert.False(t, NewPatch().Set("name", "x").Empty())
}
