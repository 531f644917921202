// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"

	"github.com/verdictd/verdictd/command"
	"github.com/verdictd/verdictd/version"

	// register the sandbox re-exec entrypoint
	_ "github.com/verdictd/verdictd/executor"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

func Run(args []string) int {
	c := cli.NewCLI("verdictd", version.GetVersion().FullVersionNumber(true))
	c.Args = args
	c.Commands = command.Commands(nil)

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}

	return exitCode
}
