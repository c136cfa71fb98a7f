// Package cli parses command-line arguments, merges them over the loaded
// configuration and drives the parse, dry-run or upload pipeline. It owns
// process-level concerns like exit codes.
package cli
