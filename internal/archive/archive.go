package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file names without a known extension.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned when an entry would escape the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// errNotDirectory is returned when the source of Create is not a directory.
	errNotDirectory = errors.New("source is not a directory")
)

// Create archives srcDir into dest. Parent directories of dest are created.
func Create(srcDir, dest string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", srcDir, errNotDirectory)
	}

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	switch {
	case isZip(dest):
		return createZip(srcDir, dest)
	case isTarGz(dest):
		return createTarGz(srcDir, dest)
	default:
		return fmt.Errorf("%s: %w", dest, ErrUnsupportedFormat)
	}
}

// Extract unpacks src into destDir.
func Extract(src, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	switch {
	case isZip(src):
		return extractZip(src, destDir)
	case isTarGz(src):
		return extractTarGz(src, destDir)
	default:
		return fmt.Errorf("%s: %w", src, ErrUnsupportedFormat)
	}
}

func isZip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

func isTarGz(name string) bool {
	n := strings.ToLower(name)

	return strings.HasSuffix(n, ".tar.gz") || strings.HasSuffix(n, ".tgz")
}

// entryName converts path under root into a slash-separated archive name
// prefixed with the base name of root.
func entryName(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(root), path)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// safeJoin resolves an archive entry name under destDir.
func safeJoin(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return filepath.Join(destDir, cleaned), nil
}

// safeLink rejects symlink targets pointing outside destDir.
func safeLink(destDir, linkPath, target string) error {
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(linkPath), target)
	}

	rel, err := filepath.Rel(destDir, filepath.Clean(resolved))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, linkPath, target)
	}

	return nil
}

func writeFile(path string, mode os.FileMode, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if err = write(f); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
