package release

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// OS tokens used in archive names.
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
)

// Architecture tokens used in archive names.
const (
	ArchX64   = "x64"
	ArchX86   = "x86"
	ArchARM64 = "arm64"
)

var (
	// ErrUnknownOS is returned for operating systems without an archive token.
	ErrUnknownOS = errors.New("unknown operating system")
	// ErrUnknownArch is returned for architectures without an archive token.
	ErrUnknownArch = errors.New("unknown architecture")
)

// Platform is an (OS, architecture) pair as it appears in archive names.
type Platform struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
}

// String renders the platform as "<OS>_<Arch>".
func (p Platform) String() string {
	return p.OS + "_" + p.Arch
}

// ArchiveExt returns the archive extension produced for the platform.
func (p Platform) ArchiveExt() string {
	if p.OS == OSLinux {
		return ExtTarGz
	}

	return ExtZip
}

// ExecutableExt returns ".exe" on Windows and "" elsewhere.
func (p Platform) ExecutableExt() string {
	if p.OS == OSWindows {
		return ".exe"
	}

	return ""
}

// CurrentPlatform detects the platform the process runs on.
func CurrentPlatform() (Platform, error) {
	return NewPlatform(runtime.GOOS, runtime.GOARCH)
}

// NewPlatform normalizes OS and architecture names (Go, uname or archive
// tokens are all accepted) into archive tokens.
func NewPlatform(goos, goarch string) (Platform, error) {
	osToken, err := NormalizeOS(goos)
	if err != nil {
		return Platform{}, err
	}

	archToken, err := NormalizeArch(goarch)
	if err != nil {
		return Platform{}, err
	}

	return Platform{OS: osToken, Arch: archToken}, nil
}

// NormalizeOS maps an operating system name to its archive token.
func NormalizeOS(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows", "win", "win32", "win64":
		return OSWindows, nil
	case "darwin", "macos", "osx", "mac":
		return OSMacOS, nil
	case "linux":
		return OSLinux, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOS, name)
	}
}

// NormalizeArch maps an architecture name to its archive token.
func NormalizeArch(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x86_64", "amd64", "x64":
		return ArchX64, nil
	case "i386", "i686", "x86", "386":
		return ArchX86, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArch, name)
	}
}
