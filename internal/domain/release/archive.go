package release

import "strings"

// Archive extensions.
const (
	ExtZip   = ".zip"
	ExtTarGz = ".tar.gz"
)

// ArchiveName builds "<AppName>_<OS>_<Arch>[_<Tag>].{tar.gz|zip}".
// The tag suffix is omitted when tag is empty.
func ArchiveName(appName string, platform Platform, tag string) string {
	var b strings.Builder

	b.WriteString(appName)
	b.WriteString("_")
	b.WriteString(platform.String())

	if tag = strings.TrimSpace(tag); tag != "" {
		b.WriteString("_")
		b.WriteString(tag)
	}

	b.WriteString(platform.ArchiveExt())

	return b.String()
}

// IsArchive reports whether name carries one of the archive extensions.
func IsArchive(name string) bool {
	n := strings.ToLower(name)

	return strings.HasSuffix(n, ExtZip) || strings.HasSuffix(n, ExtTarGz)
}
