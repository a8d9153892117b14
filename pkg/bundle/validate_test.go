package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonObject(t *testing.T) {
	_, err := Validate([]byte(`[1, 2, 3]`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestValidateRequiresMetadata(t *testing.T) {
	_, err := Validate([]byte(`{"tags": []}`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, err.Error(), "metadata")
}

func TestValidateRequiresSemanticVersion(t *testing.T) {
	_, err := Validate([]byte(`{"metadata": {"version": "latest"}}`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestValidateRejectsUnsupportedMajor(t *testing.T) {
	_, err := Validate([]byte(`{"metadata": {"version": "99.0.0"}, "tags": []}`))
	var verErr *VersionError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, "99.0.0", verErr.Got)
	assert.Contains(t, err.Error(), "version")
}

func TestValidateAcceptsAnyMinorOfSupportedMajor(t *testing.T) {
	b, err := Validate([]byte(`{"metadata": {"version": "1.4.2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", b.Metadata.Version)
}

func TestValidateRejectsUnknownTypeKey(t *testing.T) {
	_, err := Validate([]byte(`{"metadata": {"version": "1.0.0"}, "widgets": []}`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, err.Error(), "widgets")
}

func TestValidateRejectsNonArrayTypeKey(t *testing.T) {
	_, err := Validate([]byte(`{"metadata": {"version": "1.0.0"}, "tags": {"name": "x"}}`))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestValidatePreservesAbsentVersusEmpty(t *testing.T) {
	b, err := Validate([]byte(`{"metadata": {"version": "1.0.0"}, "tags": []}`))
	require.NoError(t, err)

	assert.True(t, b.Has(TypeTags))
	assert.Empty(t, *b.Tags)
	assert.False(t, b.Has(TypeTests))
	assert.False(t, b.Has(TypeRuns))
}

func TestValidateDecodesRecords(t *testing.T) {
	doc := []byte(`{
		"metadata": {"version": "1.0.0", "exportedAt": "2026-03-01T10:00:00Z"},
		"tags": [{"exportId": "exp_0011223344556677", "name": "regression", "color": "#ff0000"}]
	}`)
	b, err := Validate(doc)
	require.NoError(t, err)
	require.Len(t, *b.Tags, 1)
	assert.Equal(t, "regression", (*b.Tags)[0].Name)
}
