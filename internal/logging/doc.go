// Package logging builds the slog loggers used across nestling.
//
// Two handler formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Helpers attach standardized fields
// (component, task, stage, batch) and derive loggers from context annotations
// so every pipeline log line carries its correlation identifiers.
package logging
