// ABOUTME: Tests for the embedded language table
// ABOUTME: Verifies lookup, validation, and default resolution

package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_ContainsDefault(t *testing.T) {
	langs := All()
	require.NotEmpty(t, langs)

	found := false
	for _, l := range langs {
		if l.Code == Default {
			found = true
			assert.Equal(t, "English", l.Name)
		}
	}
	assert.True(t, found)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("en"))
	assert.True(t, Supported("es"))
	assert.False(t, Supported("klingon"))
	assert.False(t, Supported(""))
	assert.False(t, Supported("EN")) // codes are lowercase
}

func TestName(t *testing.T) {
	assert.Equal(t, "Spanish", Name("es"))
	assert.Equal(t, "xx", Name("xx"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "fr", Resolve("fr"))
	assert.Equal(t, Default, Resolve(""))
	assert.Equal(t, Default, Resolve("not-a-language"))
}
