package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		v, err := Generate(PrefixTopic)
		require.NoError(t, err)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
	assert.Len(t, seen, 1000)
}

func TestGenerate_Format(t *testing.T) {
	prefixes := []string{PrefixBook, PrefixSection, PrefixChapter, PrefixTopic, PrefixSlot, PrefixTask, PrefixExam}

	for _, prefix := range prefixes {
		t.Run(prefix, func(t *testing.T) {
			v, err := Generate(prefix)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(v, prefix+"-"))
			// nanoid default length is 21
			assert.Len(t, v, len(prefix)+1+21)
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		v := MustGenerate(PrefixSlot)
		assert.True(t, strings.HasPrefix(v, "slot-"))
	})
}
