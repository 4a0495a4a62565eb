// file: main.go
// version: 2.0.0
// guid: d8e9f0a1-b2c3-4d4e-5f6a-b7c8d9e0f1a2

package main

import (
	"fmt"
	"os"

	"github.com/kfstorm/sonarr-metadata-rewrite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
