package olecf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareNames(t *testing.T) {
	cases := []struct {
		left, right string
		want        ordering
	}{
		{"a", "ab", orderLess},       // shorter sorts first
		{"zz", "a", orderGreater},    // length beats alphabet
		{"abc", "ABC", orderEqual},   // case-insensitive
		{"abc", "abd", orderLess},
		{"b", "a", orderGreater},
		{"", "", orderEqual},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compareNames(tc.left, tc.right),
			"compareNames(%q, %q)", tc.left, tc.right)
	}
}

func TestNameChainFromPath(t *testing.T) {
	cases := []struct {
		path string
		want []string
	}{
		{"/", []string{}},
		{"", []string{}},
		{"/a/b", []string{"a", "b"}},
		{"a/b", []string{"a", "b"}},
		{"/a//b/", []string{"a", "b"}},
		{"/a/./b", []string{"a", "b"}},
		{"/a/../b", []string{"b"}},
		{"../a", []string{}},
		{"/..", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, nameChainFromPath(tc.path), "path %q", tc.path)
	}
}

func TestPathFromNameChain(t *testing.T) {
	assert.Equal(t, "/", pathFromNameChain(nil))
	assert.Equal(t, "/a", pathFromNameChain([]string{"a"}))
	assert.Equal(t, "/a/b", pathFromNameChain([]string{"a", "b"}))
}
