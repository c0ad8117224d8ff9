package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", Email("  Ada@Example.COM "))
	assert.Empty(t, Email("   "))
}

func TestSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Élan Vital", "elan vital"},
		{"  Organic   Chemistry ", "organic chemistry"},
		{"Über Physik", "uber physik"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SortKey(tt.in), tt.in)
	}
}
