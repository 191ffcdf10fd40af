package shell

import (
	"context"
	"sync"
)

// Recorder is a Runner that records commands instead of executing them.
// The publisher uses it for --dry-run; tests use it to assert command lines.
type Recorder struct {
	mu       sync.Mutex
	commands []Command

	// FailOn makes Run and Output fail for commands whose first argument matches.
	FailOn map[string]error
	// Outputs maps a command line to the bytes returned by Output.
	Outputs map[string][]byte
}

// Run records cmd.
func (r *Recorder) Run(_ context.Context, cmd Command) error {
	return r.record(cmd)
}

// Output records cmd and returns the canned output for it.
func (r *Recorder) Output(_ context.Context, cmd Command) ([]byte, error) {
	if err := r.record(cmd); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Outputs[cmd.String()], nil
}

// Commands returns the recorded command lines in order.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		lines = append(lines, c.String())
	}

	return lines
}

// Recorded returns a copy of the recorded commands.
func (r *Recorder) Recorded() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Command(nil), r.commands...)
}

func (r *Recorder) record(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, cmd)

	if len(cmd.Args) > 0 {
		if err, ok := r.FailOn[cmd.Args[0]]; ok {
			return &CommandError{Command: cmd.String(), ExitCode: 1, Err: err}
		}
	}

	return nil
}
