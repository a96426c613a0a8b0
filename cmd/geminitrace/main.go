package main

import (
	"context"
	"fmt"
	"os"

	"GeminiTrace/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
