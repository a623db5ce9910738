package main

import (
	"os"

	"example.com/fairplay/internal/cli"
)

func main() {
	os.Exit(cli.RunVerify(os.Args[1:], os.Stdout, os.Stderr))
}
