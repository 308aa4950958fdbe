package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShieldRoundTrip(t *testing.T) {
	in := `a ← "x" + "y"` + "\n" + `b ← "z"`
	protected, mappings := shield(in)
	require.Len(t, mappings, 3)
	assert.NotContains(t, protected, `"`)
	assert.Equal(t, in, unshield(protected, mappings))
}

func TestShieldNoLiterals(t *testing.T) {
	protected, mappings := shield("結果 ← 0")
	assert.Equal(t, "結果 ← 0", protected)
	assert.Nil(t, mappings)
}

func TestShieldDoesNotSpanLines(t *testing.T) {
	in := "5\" の画面\n別の\"行"
	protected, mappings := shield(in)
	assert.Equal(t, in, protected)
	assert.Empty(t, mappings)
}
