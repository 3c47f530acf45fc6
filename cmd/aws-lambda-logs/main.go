package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Nao-Mk2/aws-lambda-logs/cmd"
)

func main() {
	root := cmd.NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if code := cmd.ExitCode(err); code != 0 {
			if code == 2 {
				fmt.Fprintln(os.Stderr, "Run 'aws-lambda-logs --help' for usage.")
			}
			os.Exit(code)
		}
	}
}
