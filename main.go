package main

import (
	"os"

	"github.com/PolarWolf314/secretsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
