package dataconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownDataset(t *testing.T) {
	p, err := Lookup("iris")
	require.NoError(t, err)
	assert.Equal(t, 3, p.NClasses)
	assert.Equal(t, 4, p.NFeatures)
}

func TestLookup_UnknownDataset(t *testing.T) {
	_, err := Lookup("not-a-dataset")
	assert.Error(t, err)
}
