package main

import (
	"os"

	"raggy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
