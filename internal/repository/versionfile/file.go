package versionfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Contents is the data carried by the generated version file.
type Contents struct {
	// Version is the release tag written into __version__.
	Version string
	// RepoSlug is the "owner/repo" identifier written into REPO_SLUG.
	RepoSlug string
}

// Repository defines persistence operations for the version file.
type Repository interface {
	Load(ctx context.Context) (*Contents, error)
	Save(ctx context.Context, contents *Contents) error
}

// FileRepository persists the version file at a fixed path.
type FileRepository struct {
	// path is the filesystem location of the generated module.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// DefaultFileMode is the permission used when creating the version file.
const DefaultFileMode os.FileMode = 0o644

var (
	// ErrNotFound is returned when the version file does not exist.
	ErrNotFound = errors.New("version file not found")
	// ErrMalformed is returned when a constant is missing from the file.
	ErrMalformed = errors.New("malformed version file")
	// errEmptyVersion is returned when asked to write an empty version.
	errEmptyVersion = errors.New("version must not be empty")
	// errControlChar is returned for values that cannot stay on one line.
	errControlChar = errors.New("value contains control characters")

	versionLine = regexp.MustCompile(`(?m)^__version__\s*=\s*("(?:[^"\\]|\\.)*")\s*$`)
	slugLine    = regexp.MustCompile(`(?m)^REPO_SLUG\s*=\s*("(?:[^"\\]|\\.)*")\s*$`)
)

// NewFileRepository creates a repository bound to path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the version file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads both constants back from disk.
func (r *FileRepository) Load(_ context.Context) (*Contents, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read version file: %w", err)
	}

	return Parse(data)
}

// Save creates or overwrites the version file.
func (r *FileRepository) Save(_ context.Context, contents *Contents) error {
	if contents == nil || contents.Version == "" {
		return errEmptyVersion
	}

	if hasControl(contents.Version) {
		return fmt.Errorf("__version__: %w: %q", errControlChar, contents.Version)
	}

	if hasControl(contents.RepoSlug) {
		return fmt.Errorf("REPO_SLUG: %w: %q", errControlChar, contents.RepoSlug)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create version file directory: %w", err)
		}
	}

	if err := os.WriteFile(r.path, Render(contents), DefaultFileMode); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}

	return nil
}

// Render produces the exact bytes of the version file.
func Render(contents *Contents) []byte {
	var buf bytes.Buffer

	buf.WriteString("__version__ = ")
	buf.WriteString(quote(contents.Version))
	buf.WriteString("\nREPO_SLUG = ")
	buf.WriteString(quote(contents.RepoSlug))
	buf.WriteString("\n")

	return buf.Bytes()
}

// Parse extracts the constants from a version file body.
func Parse(data []byte) (*Contents, error) {
	version, err := extract(versionLine, data, "__version__")
	if err != nil {
		return nil, err
	}

	slug, err := extract(slugLine, data, "REPO_SLUG")
	if err != nil {
		return nil, err
	}

	return &Contents{Version: version, RepoSlug: slug}, nil
}

func extract(re *regexp.Regexp, data []byte, name string) (string, error) {
	m := re.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%w: %s is missing", ErrMalformed, name)
	}

	value, err := strconv.Unquote(string(m[1]))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}

	return value, nil
}

func hasControl(s string) bool {
	return strings.ContainsFunc(s, unicode.IsControl)
}

// quote renders s as a double-quoted literal. Plain tags are written
// verbatim; only backslashes and double quotes are escaped.
func quote(s string) string {
	var b bytes.Buffer

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}

		b.WriteByte(s[i])
	}

	b.WriteByte('"')

	return b.String()
}
