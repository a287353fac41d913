// Package config loads, validates, and normalizes nestling configuration.
//
// Configuration lives in a TOML file (default ~/.config/nestling/config.toml)
// and is organized into sections: [paths] for local state directories,
// [backend] for the hosted API, [upload] for pipeline tuning, and [logging]
// for log output. Load applies defaults, expands ~ in paths, and validates
// the result before anything else runs.
package config
