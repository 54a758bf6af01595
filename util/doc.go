// Package util holds small string helpers shared by the boundary adapter
// and the configuration loader: markup sanitization and size parsing.
package util
