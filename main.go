package main

import (
	"os"

	"github.com/nicolasacchi/vmcli/cmd"
)

func main() {
	if err := cmd.Execute(Version); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
