// Package component defines the lifecycle contract shared by the long-running
// parts of failsafe and a registry that starts them in order and stops them
// in reverse.
package component
