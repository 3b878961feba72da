// Package cli parses command-line arguments into the run configuration and
// carries process exit codes. Flags override values from the -config file.
package cli
