// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. Flag
// defaults come from REFINERY_* environment variables. It translates both
// into the application's internal configuration.
package cli
