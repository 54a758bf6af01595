// Command failsafectl inspects and maintains the offline store of a host
// process: queued operations, cached reads and the replay lock.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

func main() {
	root := newRootCmd(&cli{fs: afero.NewOsFs(), environ: os.Environ})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
