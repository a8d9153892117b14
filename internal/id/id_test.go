package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := Storage()
		assert.False(t, seen[s], "duplicate storage id %s", s)
		seen[s] = true
	}
}

func TestExportIDFormat(t *testing.T) {
	e := Export()
	assert.True(t, IsExport(e))
	assert.Len(t, e, len(ExportPrefix)+16)
}

func TestIDSpacesAreDisjoint(t *testing.T) {
	assert.False(t, IsExport(Storage()))
	assert.True(t, IsExport(Export()))
}
