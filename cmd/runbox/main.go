package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"runbox/internal/launch"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if code, ok := launch.ExitStatus(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
