package featuregen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecFeatureGenParsesWhitespaceSeparatedFloats(t *testing.T) {
	fg := NewExecFeatureGen("sh", "-c", "echo 1.5 2 3.25")
	feats, err := fg.Features(context.Background(), "instance1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 3.25}, feats)
}

func TestExecFeatureGenErrorsOnNonNumericOutput(t *testing.T) {
	fg := NewExecFeatureGen("sh", "-c", "echo not-a-number")
	_, err := fg.Features(context.Background(), "instance1")
	assert.Error(t, err)
}

func TestExecFeatureGenErrorsOnCommandFailure(t *testing.T) {
	fg := NewExecFeatureGen("sh", "-c", "exit 1")
	_, err := fg.Features(context.Background(), "instance1")
	assert.Error(t, err)
}
