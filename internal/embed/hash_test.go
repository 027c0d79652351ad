package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	a, err := e.Embed(ctx, "parse the config file")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "parse the config file")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, Dimensions)
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	v, err := e.Embed(context.Background(), "loadConfigFromFile handles yaml parsing")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestHashEmbedder_EmptyInput(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	v, err := e.Embed(context.Background(), "   \n\t")
	require.NoError(t, err)
	assert.Len(t, v, Dimensions)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestHashEmbedder_SimilarTextsCloser(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	query, err := e.Embed(ctx, "read configuration from yaml file")
	require.NoError(t, err)
	near, err := e.Embed(ctx, "load configuration yaml file parser")
	require.NoError(t, err)
	far, err := e.Embed(ctx, "zebra giraffe elephant savanna wildlife")
	require.NoError(t, err)

	assert.Greater(t, dot(query, near), dot(query, far))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHashEmbedder_EmbedBatch(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	vecs, err := e.EmbedBatch(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, Dimensions)
	}

	empty, err := e.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHashEmbedder_Closed(t *testing.T) {
	e := NewHashEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "anything")
	assert.Error(t, err)
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"loadConfig", []string{"load", "Config"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"simple", []string{"simple"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCamelCase(tt.in), "input %q", tt.in)
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("parseConfigFile snake_case_name x")
	assert.Equal(t, []string{"parse", "config", "file", "snake", "case", "name", "x"}, tokens)
}
