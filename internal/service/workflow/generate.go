package workflow

import (
	"strings"

	"github.com/samber/lo"

	"github.com/atepart/rns-release/internal/config"
)

// ToolsModule is the module path the rns-* tools are installed from.
const ToolsModule = "github.com/atepart/rns-release"

// Pinned action versions.
const (
	actionCheckout         = "actions/checkout@v4"
	actionSetupPython      = "actions/setup-python@v5"
	actionSetupGo          = "actions/setup-go@v5"
	actionUploadArtifact   = "actions/upload-artifact@v4"
	actionDownloadArtifact = "actions/download-artifact@v4"
)

// Generate builds the workflow for cfg. cfg must be validated.
func Generate(cfg *config.Config) *Workflow {
	w := cfg.Workflow

	return &Workflow{
		Name:        "Build and Release",
		On:          triggers(w),
		Permissions: map[string]string{"contents": "read"},
		Jobs: Jobs{
			Build:   buildJob(cfg),
			Release: releaseJob(cfg),
		},
	}
}

func triggers(w config.Workflow) Triggers {
	if w.Trigger == config.TriggerBranch {
		return Triggers{Push: Push{Branches: []string{w.Branch}}}
	}

	return Triggers{
		Push:             Push{Tags: []string{w.TagPattern}},
		WorkflowDispatch: &struct{}{},
	}
}

// Release tag expressions. They follow the publisher's derivation from the CI
// environment: the pushed tag on tag refs, "build-<run number>" otherwise.
const (
	branchTagExpression = "build-${{ github.run_number }}"
	refTagExpression    = "${{ github.ref_type == 'tag' && github.ref_name || format('build-{0}', github.run_number) }}"
)

// tagExpression is the release tag as seen from inside a job. Tag-triggered
// workflows can also be dispatched by hand from a branch, so the ref type
// decides the tag there.
func tagExpression(w config.Workflow) string {
	if w.Trigger == config.TriggerBranch {
		return branchTagExpression
	}

	return refTagExpression
}

func buildJob(cfg *config.Config) Job {
	w := cfg.Workflow
	tag := tagExpression(w)
	archiveBase := cfg.AppName + "_${{ matrix.os }}_${{ matrix.arch }}_" + tag

	return Job{
		Name:   "Build ${{ matrix.os }} ${{ matrix.arch }}",
		RunsOn: "${{ matrix.runner }}",
		Strategy: &Strategy{
			FailFast: false,
			Matrix: Matrix{
				Include: lo.Map(w.Targets, func(t config.Target, _ int) MatrixEntry {
					return MatrixEntry{Runner: t.Runner, OS: t.Platform.OS, Arch: t.Platform.Arch}
				}),
			},
		},
		Steps: []Step{
			{Name: "Checkout", Uses: actionCheckout},
			{
				Name: "Set up Python",
				Uses: actionSetupPython,
				With: map[string]string{"python-version": w.PythonVersion},
			},
			{
				Name:  "Install Python dependencies",
				Shell: "bash",
				Run: strings.Join([]string{
					"python -m pip install --upgrade pip",
					"if [ -f requirements.txt ]; then pip install -r requirements.txt; fi",
					"pip install " + cfg.Build.Tool,
				}, "\n"),
			},
			setupGoStep(w),
			installStep("rns-packager", w),
			{
				Name:  "Package",
				Shell: "bash",
				Run:   "rns-packager --os ${{ matrix.os }} --arch ${{ matrix.arch }} --tag " + tag,
			},
			{
				Name: "Upload archive",
				Uses: actionUploadArtifact,
				With: map[string]string{
					"name":              archiveBase,
					"path":              cfg.ArtifactsDir + "/" + archiveBase + ".*",
					"if-no-files-found": "error",
				},
			},
		},
	}
}

func releaseJob(cfg *config.Config) Job {
	w := cfg.Workflow

	return Job{
		Name:        "Publish release",
		Needs:       []string{"build"},
		RunsOn:      "ubuntu-latest",
		Permissions: map[string]string{"contents": "write"},
		Steps: []Step{
			{Name: "Checkout", Uses: actionCheckout},
			{
				Name: "Download archives",
				Uses: actionDownloadArtifact,
				With: map[string]string{"path": cfg.ArtifactsDir},
			},
			setupGoStep(w),
			installStep("rns-publisher", w),
			{
				Name:  "Publish",
				Shell: "bash",
				Env:   map[string]string{"GH_TOKEN": "${{ secrets.GITHUB_TOKEN }}"},
				Run:   "rns-publisher --tag " + tagExpression(w),
			},
		},
	}
}

func setupGoStep(w config.Workflow) Step {
	return Step{
		Name: "Set up Go",
		Uses: actionSetupGo,
		With: map[string]string{"go-version": w.GoVersion},
	}
}

func installStep(binary string, w config.Workflow) Step {
	return Step{
		Name:  "Install " + binary,
		Shell: "bash",
		Run:   "go install " + ToolsModule + "/cmd/" + binary + "@" + w.ToolsVersion,
	}
}
