package release

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnsupportedTag is returned when a tag does not follow the new<N>[b<B>] scheme.
var ErrUnsupportedTag = errors.New("unsupported tag format")

// tagPattern matches tags such as "new103" and "new103b1".
var tagPattern = regexp.MustCompile(`^new(\d+)(?:b(\d+))?$`)

// Tag is a parsed version tag.
type Tag struct {
	// Number is the release number following the "new" prefix.
	Number int
	// Beta is the beta number, or nil for a stable release.
	Beta *int
}

// ParseTag parses a tag like "new103b1".
func ParseTag(raw string) (Tag, error) {
	m := tagPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Tag{}, fmt.Errorf("%w: %q", ErrUnsupportedTag, raw)
	}

	number, err := strconv.Atoi(m[1])
	if err != nil {
		return Tag{}, fmt.Errorf("%w: %q", ErrUnsupportedTag, raw)
	}

	tag := Tag{Number: number}

	if m[2] != "" {
		beta, err := strconv.Atoi(m[2])
		if err != nil {
			return Tag{}, fmt.Errorf("%w: %q", ErrUnsupportedTag, raw)
		}

		tag.Beta = &beta
	}

	return tag, nil
}

// IsPrerelease reports whether the tag denotes a beta build.
func (t Tag) IsPrerelease() bool {
	return t.Beta != nil
}

// String renders the tag back into its canonical form.
func (t Tag) String() string {
	if t.Beta == nil {
		return "new" + strconv.Itoa(t.Number)
	}

	return "new" + strconv.Itoa(t.Number) + "b" + strconv.Itoa(*t.Beta)
}

// Compare orders two parsed tags: number first, then stable over beta,
// then beta number.
func (t Tag) Compare(other Tag) int {
	if t.Number != other.Number {
		return cmpInt(t.Number, other.Number)
	}

	switch {
	case t.Beta == nil && other.Beta == nil:
		return 0
	case t.Beta == nil:
		return 1
	case other.Beta == nil:
		return -1
	default:
		return cmpInt(*t.Beta, *other.Beta)
	}
}

// CompareTags compares two raw tags by version semantics and falls back
// to plain string comparison when either of them does not parse.
func CompareTags(a, b string) int {
	ta, errA := ParseTag(a)
	tb, errB := ParseTag(b)

	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}

	return ta.Compare(tb)
}

// IsNewer reports whether remote is a newer tag than local.
func IsNewer(remote, local string) bool {
	return CompareTags(remote, local) > 0
}

// IsPrereleaseTag reports whether raw parses as a beta tag.
func IsPrereleaseTag(raw string) bool {
	tag, err := ParseTag(raw)

	return err == nil && tag.IsPrerelease()
}

// SameVersion compares two version strings ignoring case, surrounding
// whitespace and a leading "v".
func SameVersion(a, b string) bool {
	return normalizeVersion(a) == normalizeVersion(b)
}

func normalizeVersion(v string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.ToLower(strings.TrimSpace(v)), "v"))
}

func cmpInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
