// Command nativerender runs render scripts against the headless backend.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/nativerender/cmd/nativerender/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
