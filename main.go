package main

import (
	"os"

	"github.com/spigell/recruiter-agency/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
