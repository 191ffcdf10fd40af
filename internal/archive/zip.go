package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func createZip(srcDir, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		return addZipEntry(zw, srcDir, path, d)
	})
	if walkErr != nil {
		_ = zw.Close()

		return fmt.Errorf("write %s: %w", dest, walkErr)
	}

	return zw.Close()
}

func addZipEntry(zw *zip.Writer, root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	name, err := entryName(root, path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name

	switch {
	case info.IsDir():
		header.Name += "/"
		header.Method = zip.Store
		_, err = zw.CreateHeader(header)

		return err
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}

		header.Method = zip.Store

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, target)

		return err
	case info.Mode().IsRegular():
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		return copyFrom(w, path)
	default:
		return nil
	}
}

func extractZip(src, destDir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = zr.Close()
	}()

	for _, f := range zr.File {
		if err = extractZipEntry(f, destDir); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()

	switch {
	case mode.IsDir():
		return os.MkdirAll(target, 0o755)
	case mode&os.ModeSymlink != 0:
		rc, err := f.Open()
		if err != nil {
			return err
		}

		link, err := io.ReadAll(rc)
		_ = rc.Close()

		if err != nil {
			return err
		}

		return createSymlink(destDir, target, string(link))
	default:
		rc, err := f.Open()
		if err != nil {
			return err
		}

		defer func() {
			_ = rc.Close()
		}()

		if mode.Perm() == 0 {
			mode = 0o644
		}

		return writeFile(target, mode, func(out *os.File) error {
			_, err := io.Copy(out, rc) //nolint:gosec // Archives come from our own releases.

			return err
		})
	}
}

func createSymlink(destDir, linkPath, target string) error {
	if err := safeLink(destDir, linkPath, target); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return err
	}

	_ = os.Remove(linkPath)

	return os.Symlink(target, linkPath)
}

func copyFrom(w io.Writer, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)

	return err
}
