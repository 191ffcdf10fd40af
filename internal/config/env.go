package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the settings taken from the process environment, either set by
// the CI runner or loaded from a local .env file.
type Env struct {
	// GitHubToken authenticates GitHub API and release CLI calls.
	GitHubToken string `env:"GITHUB_TOKEN"`
	// GHToken is the release CLI's own token variable, used as a fallback.
	GHToken string `env:"GH_TOKEN"`
	// RefType is "tag" or "branch" for the ref that triggered a CI run.
	RefType string `env:"GITHUB_REF_TYPE"`
	// RefName is the short ref name that triggered a CI run.
	RefName string `env:"GITHUB_REF_NAME"`
	// RunNumber is the CI run counter.
	RunNumber string `env:"GITHUB_RUN_NUMBER"`
	// LogLevel overrides the log level when --log-level is not given.
	LogLevel string `env:"RNS_LOG_LEVEL" envDefault:"info"`
}

// DefaultEnvFilename is the optional dotenv file read before parsing the environment.
const DefaultEnvFilename = ".env"

var errNoReleaseTag = errors.New("release tag is not set and cannot be derived from the CI environment")

// LoadEnv loads the optional dotenv files and parses the environment.
// Variables already present in the environment win over dotenv values.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFilename}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &e, nil
}

// Token returns the GitHub token, preferring GITHUB_TOKEN over GH_TOKEN.
func (e *Env) Token() string {
	if e == nil {
		return ""
	}

	if e.GitHubToken != "" {
		return e.GitHubToken
	}

	return e.GHToken
}

// ReleaseTag derives the release tag name for a CI run: the pushed tag on
// tag builds, "build-<run number>" otherwise.
func (e *Env) ReleaseTag() (string, error) {
	if e == nil {
		return "", errNoReleaseTag
	}

	if e.RefType == "tag" && e.RefName != "" {
		return e.RefName, nil
	}

	if e.RunNumber == "" {
		return "", errNoReleaseTag
	}

	if _, err := strconv.Atoi(e.RunNumber); err != nil {
		return "", fmt.Errorf("invalid run number %q: %w", e.RunNumber, err)
	}

	return "build-" + e.RunNumber, nil
}
