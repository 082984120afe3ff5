package main

import (
	"os"

	"github.com/mechamoby/sentry/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
