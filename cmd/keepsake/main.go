package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/keepsake-archive/keepsake/internal/cli"
	"github.com/keepsake-archive/keepsake/internal/prompt"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
