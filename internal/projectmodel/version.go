package projectmodel

import (
	"strconv"
	"strings"
)

// CompareVersions compares dotted version strings segment by segment.
// Segments split on '.', '_' and '-'; numeric segments compare numerically,
// anything else lexically. Missing segments count as zero, so "1.6" equals
// "1.6.0". Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := splitVersion(a)
	bs := splitVersion(b)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := "", ""
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if c := compareSegment(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// VersionAtLeast reports whether version is min or newer. An empty version
// is treated as unknown and fails the check.
func VersionAtLeast(version, min string) bool {
	if version == "" {
		return false
	}
	return CompareVersions(version, min) >= 0
}

func splitVersion(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
}

func compareSegment(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if a == "" {
		an, aerr = 0, nil
	}
	if b == "" {
		bn, berr = 0, nil
	}
	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
