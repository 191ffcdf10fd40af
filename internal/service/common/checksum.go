//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bufio"
	"context"
	"crypto"
	_ "crypto/sha256" // Registers DefaultChecksumFunction.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// DefaultChecksumFunction is the hash used for release checksums.
const DefaultChecksumFunction = crypto.SHA256

// DefaultChecksumWorkers bounds concurrent checksum computation.
const DefaultChecksumWorkers = 4

var (
	// ErrNoChecksum is returned when a manifest has no entry for a file.
	ErrNoChecksum = errors.New("no checksum for file")
	// ErrChecksumMismatch is returned when a file does not match its manifest entry.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// errMalformedChecksums is returned for manifest lines that cannot be parsed.
	errMalformedChecksums = errors.New("malformed checksum line")
	// errHashUnavailable is returned when the checksum function is not linked in.
	errHashUnavailable = errors.New("hash function is unavailable")
)

// Checksums maps file base names to their digests.
type Checksums map[string][]byte

// FileChecksum returns the DefaultChecksumFunction digest of the file at path.
func FileChecksum(path string) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := DefaultChecksumFunction.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// ComputeChecksums hashes files concurrently with at most workers goroutines.
// Entries are keyed by base name.
func ComputeChecksums(ctx context.Context, paths []string, workers int) (Checksums, error) {
	if workers <= 0 {
		workers = DefaultChecksumWorkers
	}

	var (
		mu     sync.Mutex
		result = make(Checksums, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sum, err := FileChecksum(path)
			if err != nil {
				return fmt.Errorf("checksum %s: %w", path, err)
			}

			mu.Lock()
			result[filepath.Base(path)] = sum
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// ParseChecksums reads "<hex>  <name>" lines as written by sha256sum.
// A leading "*" on the name (binary mode) is ignored, as are blank lines.
func ParseChecksums(r io.Reader) (Checksums, error) {
	result := make(Checksums)
	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		digest, name, ok := strings.Cut(line, " ")
		name = strings.TrimPrefix(strings.TrimSpace(name), "*")

		if !ok || name == "" {
			return nil, fmt.Errorf("%w at line %d", errMalformedChecksums, lineNumber)
		}

		sum, err := hex.DecodeString(digest)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %w", errMalformedChecksums, lineNumber, err)
		}

		result[name] = sum
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}

	return result, nil
}

// WriteTo writes the manifest sorted by name.
func (c Checksums) WriteTo(w io.Writer) (int64, error) {
	names := lo.Keys(c)
	slices.Sort(names)

	var written int64

	for _, name := range names {
		n, err := fmt.Fprintf(w, "%s  %s\n", hex.EncodeToString(c[name]), name)
		written += int64(n)

		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// Save writes the manifest to path.
func (c Checksums) Save(path string) (err error) {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = c.WriteTo(file)

	return err
}

// Verify checks the file at path against the entry for name.
func (c Checksums) Verify(name, path string) error {
	expected, ok := c[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoChecksum)
	}

	actual, err := FileChecksum(path)
	if err != nil {
		return err
	}

	if !slices.Equal(expected, actual) {
		return fmt.Errorf("%s: %w: expected %x, got %x", name, ErrChecksumMismatch, expected, actual)
	}

	return nil
}
