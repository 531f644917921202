// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"github.com/verdictd/verdictd/version"
)

// VersionCommand prints the version.
type VersionCommand struct {
	Meta
	Version *version.VersionInfo
}

func (c *VersionCommand) Help() string {
	return ""
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the verdictd version"
}

func (c *VersionCommand) Name() string { return "version" }

func (c *VersionCommand) Run(_ []string) int {
	c.Ui.Output(c.Version.FullVersionNumber(true))
	return 0
}
