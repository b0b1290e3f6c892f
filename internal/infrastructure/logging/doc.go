// Package logging provides structured logging built on log/slog.
//
// The Logger adds service-wide default fields and is configured from the
// logging section of the config file. Logs go to stderr by default so that
// stdout remains a clean channel for command output.
package logging
