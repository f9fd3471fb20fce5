package main

import (
	"fmt"
	"os"

	"github.com/thiagokokada/gitvcs/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gitvcs: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
