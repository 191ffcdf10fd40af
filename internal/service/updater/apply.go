package updater

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/common"
)

// applyBundle copies the extracted bundle over the install directory. The
// application executable is swapped in with go-update and checksum
// validation; every other file is replaced through a rename.
func (u *updater) applyBundle(ctx context.Context, bundle string) error {
	mainExecutable := common.ExecutableName(u.cfg.AppName)

	return filepath.WalkDir(bundle, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(bundle, path)
		if err != nil {
			return err
		}

		target := filepath.Join(u.installDir, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			_ = os.Remove(target)

			return os.Symlink(link, target)
		case !info.Mode().IsRegular():
			return nil
		case rel == mainExecutable:
			logger.InfoKV(ctx, "Updating executable", "file", rel)

			return applyExecutable(path, target)
		default:
			logger.DebugKV(ctx, "Updating file", "file", rel)

			return replaceFile(path, target, info.Mode().Perm())
		}
	})
}

// applyExecutable swaps target for the file at src using go-update.
func applyExecutable(src, target string) error {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return err
	}

	checksum, err := common.FileChecksum(src)
	if err != nil {
		return err
	}

	// go-update renames the old target aside, so it must exist.
	if _, err = os.Stat(target); isNotExist(err) {
		file, createErr := os.Create(target)
		if createErr != nil {
			return createErr
		}

		_ = file.Close()
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       common.DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply %s: %w", target, err)
	}

	// Windows cannot delete a running binary, so go-update leaves it hidden next to the target.
	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// replaceFile writes src next to target and renames it into place.
func replaceFile(src, target string, mode os.FileMode) (err error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	temporary := target + ".new"

	out, err := os.OpenFile(temporary, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(temporary)

		return err
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(temporary)

		return err
	}

	if err = os.Chmod(temporary, mode); err != nil {
		_ = os.Remove(temporary)

		return err
	}

	return os.Rename(temporary, target)
}

// startApplication launches the installed executable detached from the updater.
func (u *updater) startApplication(ctx context.Context) error {
	executable := filepath.Join(u.installDir, common.ExecutableName(u.cfg.AppName))

	logger.InfoKV(ctx, "Starting executable", "executable", executable)

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd.exe", "/C", "start", "", executable)
	default:
		cmd = exec.Command(executable)
	}

	cmd.Dir = u.installDir

	if err := cmd.Start(); err != nil {
		return err
	}

	return cmd.Process.Release()
}
