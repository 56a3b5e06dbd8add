package main

import (
	"os"

	"opsmeter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
