// Package version reports the build of the failsafe binaries.
//
// Version and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/failsafe/version.Version=1.4.0" ./cmd/failsafectl
//
// The commit and dirty flag come from the VCS stamp the go command embeds.
package version
