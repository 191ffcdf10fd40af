//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/atepart/rns-release/internal/logger"
)

// UpdaterExecutableBase is the updater binary name without extension.
const UpdaterExecutableBase = "rns-updater"

// ExecutableName appends ".exe" to base on Windows.
func ExecutableName(base string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(base), ".exe") {
		return base + ".exe"
	}

	return base
}

// TerminateProcesses kills every process, except the current one, whose
// executable name matches one of names. Matching ignores case and a ".exe"
// suffix. It returns the number of killed processes.
func TerminateProcesses(ctx context.Context, names ...string) (int, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[processKey(name)] = struct{}{}
	}

	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	thisProcessID := os.Getpid()
	killed := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if _, found := wanted[processKey(process.Executable())]; !found {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return killed, err
		}

		logger.InfoKV(ctx, "Terminating process", "pid", process.Pid(), "executable", process.Executable())

		if err = runningProcess.Kill(); err != nil {
			return killed, err
		}

		killed++
	}

	return killed, nil
}

func processKey(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}
