package subdomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueFiltersScopeAndDuplicates(t *testing.T) {
	got := unique([]string{
		"A.Example.COM",
		"a.example.com",
		"b.example.com",
		"evil.other.com",
		"",
		"  c.example.com  ",
	}, "example.com")
	assert.Equal(t, []string{"a.example.com", "b.example.com", "c.example.com"}, got)
}
