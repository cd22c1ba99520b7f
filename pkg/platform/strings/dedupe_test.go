package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"LAB-001", "LAB-002"}, DedupeAndTrim([]string{"  LAB-001 ", "LAB-002", "LAB-001", "", "  "}))
	assert.Nil(t, DedupeAndTrim(nil))
	assert.Empty(t, DedupeAndTrim([]string{" "}))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , ,"))
	assert.Equal(t, []string{"0xaa", "0xbb"}, SplitList("0xaa, 0xbb,0xaa"))
}
