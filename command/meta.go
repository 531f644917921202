// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

// Package command implements the verdictd CLI.
package command

import (
	"github.com/hashicorp/cli"
)

// Meta contains the options that apply to every command.
type Meta struct {
	Ui cli.Ui
}
