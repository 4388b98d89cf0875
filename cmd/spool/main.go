package main

import (
	"os"

	"github.com/spoolhq/spool/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
