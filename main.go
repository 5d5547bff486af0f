package main

import (
	"os"

	"stackops/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
