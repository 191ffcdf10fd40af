// Package config defines the release settings used by the rns-* binaries
// and provides helpers to load, validate and save them in YAML format.
//
// Settings that come from the CI runner or from secrets (tokens, ref
// names, run numbers) are read from the environment into Env, optionally
// seeded from a local .env file.
package config
