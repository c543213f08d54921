package main

import (
	"os"

	"github.com/haulplan/haulplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
