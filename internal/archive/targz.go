package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func createTarGz(srcDir, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		return addTarEntry(tw, srcDir, path, d)
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = gz.Close()

		return fmt.Errorf("write %s: %w", dest, walkErr)
	}

	if err = tw.Close(); err != nil {
		return err
	}

	return gz.Close()
}

func addTarEntry(tw *tar.Writer, root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	name, err := entryName(root, path)
	if err != nil {
		return err
	}

	var link string

	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}

	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err = tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	return copyFrom(tw, path)
}

func extractTarGz(src, destDir string) error {
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}

		if err = extractTarEntry(tr, header, destDir); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	}
}

func extractTarEntry(tr *tar.Reader, header *tar.Header, destDir string) error {
	target, err := safeJoin(destDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeSymlink:
		return createSymlink(destDir, target, header.Linkname)
	case tar.TypeReg:
		mode := os.FileMode(header.Mode).Perm() //nolint:gosec // Mode bits come from our own archives.
		if mode == 0 {
			mode = 0o644
		}

		return writeFile(target, mode, func(out *os.File) error {
			_, err := io.Copy(out, tr) //nolint:gosec // Archives come from our own releases.

			return err
		})
	default:
		return nil
	}
}
