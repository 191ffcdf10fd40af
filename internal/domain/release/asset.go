package release

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
)

// ChecksumsAssetName is the name of the checksum manifest uploaded with every release.
const ChecksumsAssetName = "SHA256SUMS.txt"

// Asset is a downloadable file attached to a published release.
type Asset struct {
	Name        string
	DownloadURL string
	Size        int64
}

// Release is a published release as seen by the updater.
type Release struct {
	Tag         string
	Name        string
	PublishedAt time.Time
	Prerelease  bool
	Body        string
	Assets      []Asset
}

// AssetFor picks the archive matching platform, if any.
func (r *Release) AssetFor(platform Platform) (Asset, bool) {
	return SelectAsset(r.Tag, r.Assets, platform)
}

// FindAsset returns the asset with the exact name.
func (r *Release) FindAsset(name string) (Asset, bool) {
	return lo.Find(r.Assets, func(a Asset) bool {
		return a.Name == name
	})
}

var (
	osKeywords = map[string][]string{
		OSWindows: {"windows", "win"},
		OSMacOS:   {"macos", "darwin", "osx", "mac"},
		OSLinux:   {"linux"},
	}
	x64Keywords   = []string{"x64", "x86_64", "amd64", "win64", "64bit"}
	x86Keywords   = []string{"x86", "i386", "win32", "32bit"}
	arm64Keywords = []string{"arm64", "aarch64"}
)

// SelectAsset chooses the archive for platform among assets. Candidates
// whose name contains the tag win; ties go to the longer name.
func SelectAsset(tag string, assets []Asset, platform Platform) (Asset, bool) {
	candidates := lo.Filter(assets, func(a Asset, _ int) bool {
		if a.Name == "" || a.DownloadURL == "" || !IsArchive(a.Name) {
			return false
		}

		name := strings.ToLower(a.Name)

		return matchOS(name, platform.OS) && matchArch(name, platform.Arch)
	})

	if len(candidates) == 0 {
		return Asset{}, false
	}

	lowerTag := strings.ToLower(tag)
	score := func(a Asset) (bool, int) {
		name := strings.ToLower(a.Name)

		return lowerTag != "" && strings.Contains(name, lowerTag), len(name)
	}

	best := lo.MaxBy(candidates, func(a, b Asset) bool {
		aHasTag, aLen := score(a)
		bHasTag, bLen := score(b)

		if aHasTag != bHasTag {
			return aHasTag
		}

		return aLen > bLen
	})

	return best, true
}

// shortKeywordLen is the length up to which an OS keyword must start a name
// token: "win" is a substring of "darwin".
const shortKeywordLen = 3

func matchOS(name, osToken string) bool {
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return lo.SomeBy(osKeywords[osToken], func(keyword string) bool {
		if len(keyword) > shortKeywordLen {
			return strings.Contains(name, keyword)
		}

		return lo.SomeBy(tokens, func(token string) bool {
			return strings.HasPrefix(token, keyword)
		})
	})
}

func matchArch(name, arch string) bool {
	switch arch {
	case ArchX64:
		if containsAny(name, x64Keywords...) {
			return true
		}

		return !containsAny(name, x86Keywords...) && !containsAny(name, arm64Keywords...)
	case ArchX86:
		return containsAny(name, x86Keywords...) && !containsAny(name, x64Keywords...)
	case ArchARM64:
		return containsAny(name, arm64Keywords...)
	default:
		return true
	}
}

func containsAny(s string, subs ...string) bool {
	return lo.SomeBy(subs, func(sub string) bool {
		return strings.Contains(s, sub)
	})
}

// Latest returns the newest release following the tag scheme. Releases
// are ordered by tag and then by publication time.
func Latest(releases []Release) (Release, bool) {
	type ranked struct {
		tag     Tag
		release Release
	}

	prepared := make([]ranked, 0, len(releases))

	for _, r := range releases {
		tag, err := ParseTag(r.Tag)
		if err != nil {
			continue
		}

		prepared = append(prepared, ranked{tag: tag, release: r})
	}

	if len(prepared) == 0 {
		return Release{}, false
	}

	slices.SortStableFunc(prepared, func(a, b ranked) int {
		if c := b.tag.Compare(a.tag); c != 0 {
			return c
		}

		return b.release.PublishedAt.Compare(a.release.PublishedAt)
	})

	return prepared[0].release, true
}

// SortByPublished orders releases newest first and keeps at most limit of them.
// A non-positive limit keeps everything.
func SortByPublished(releases []Release, limit int) []Release {
	sorted := slices.Clone(releases)

	slices.SortStableFunc(sorted, func(a, b Release) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}
