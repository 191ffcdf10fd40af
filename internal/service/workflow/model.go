package workflow

// The types below mirror the subset of the GitHub Actions workflow syntax the
// generator emits. Field order is the output order.

// Workflow is a complete workflow file.
type Workflow struct {
	Name        string            `yaml:"name"`
	On          Triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Jobs        Jobs              `yaml:"jobs"`
}

// Triggers lists the events that start the workflow.
type Triggers struct {
	Push             Push      `yaml:"push"`
	WorkflowDispatch *struct{} `yaml:"workflow_dispatch,omitempty"`
}

// Push filters push events.
type Push struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

// Jobs holds the two pipeline stages.
type Jobs struct {
	Build   Job `yaml:"build"`
	Release Job `yaml:"release"`
}

// Job is a single workflow job.
type Job struct {
	Name        string            `yaml:"name"`
	Needs       []string          `yaml:"needs,omitempty"`
	RunsOn      string            `yaml:"runs-on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Strategy    *Strategy         `yaml:"strategy,omitempty"`
	Steps       []Step            `yaml:"steps"`
}

// Strategy is the build matrix.
type Strategy struct {
	FailFast bool   `yaml:"fail-fast"`
	Matrix   Matrix `yaml:"matrix"`
}

// Matrix enumerates build targets.
type Matrix struct {
	Include []MatrixEntry `yaml:"include"`
}

// MatrixEntry is one build target.
type MatrixEntry struct {
	Runner string `yaml:"runner"`
	OS     string `yaml:"os"`
	Arch   string `yaml:"arch"`
}

// Step is a single job step.
type Step struct {
	Name  string            `yaml:"name"`
	Uses  string            `yaml:"uses,omitempty"`
	With  map[string]string `yaml:"with,omitempty"`
	Shell string            `yaml:"shell,omitempty"`
	Env   map[string]string `yaml:"env,omitempty"`
	Run   string            `yaml:"run,omitempty"`
}
