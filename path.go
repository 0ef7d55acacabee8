package olecf

import (
	"path"
	"strings"
	"unicode/utf16"
)

type ordering int

const (
	orderLess ordering = iota
	orderEqual
	orderGreater
)

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// compareNames implements the directory ordering: shorter UTF-16 names
// sort first, names of equal length compare by their uppercase mapping.
func compareNames(left, right string) ordering {
	ll, rl := utf16Len(left), utf16Len(right)
	if ll < rl {
		return orderLess
	}
	if ll > rl {
		return orderGreater
	}

	lu, ru := strings.ToUpper(left), strings.ToUpper(right)
	switch {
	case lu == ru:
		return orderEqual
	case lu < ru:
		return orderLess
	default:
		return orderGreater
	}
}

// nameChainFromPath splits a slash path into storage/stream names. A
// path escaping above the root resolves to nothing.
func nameChainFromPath(s string) []string {
	s = path.Clean(s)
	s = strings.TrimPrefix(s, "/")
	if s == "" || s == "." {
		return []string{}
	}
	if strings.HasPrefix(s, "..") {
		return []string{}
	}
	return strings.Split(s, "/")
}

func pathFromNameChain(names []string) string {
	return "/" + strings.Join(names, "/")
}
