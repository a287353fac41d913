package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Stderr))
}

func run(stderr *os.File) int {
	err := newRootCommand().Execute()
	if err == nil {
		return 0
	}
	// An interrupted batch already reported its state through the progress
	// printer; only real errors get a line here.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "nestling:", err)
	}
	return 1
}
