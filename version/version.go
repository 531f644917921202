// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package version

import (
	"bytes"
	"fmt"
)

var (
	// GitCommit is the git commit that was compiled. It is filled in by
	// the compiler via ldflags.
	GitCommit string

	// Version is the main version number that is being run at the moment.
	Version = "3.0.0"

	// VersionPrerelease is a pre-release marker for the version. If this
	// is "" (empty string) then it means that it is a final release.
	// Otherwise, this is a pre-release such as "dev", "beta", "rc1", etc.
	VersionPrerelease = "dev"
)

// VersionInfo describes the version of the running binary.
type VersionInfo struct {
	Revision          string
	Version           string
	VersionPrerelease string
}

func GetVersion() *VersionInfo {
	return &VersionInfo{
		Revision:          GitCommit,
		Version:           Version,
		VersionPrerelease: VersionPrerelease,
	}
}

// FullVersionNumber returns the version string including any pre-release
// marker and, when rev is true, the git revision.
func (v *VersionInfo) FullVersionNumber(rev bool) string {
	var versionString bytes.Buffer

	fmt.Fprintf(&versionString, "Verdictd v%s", v.Version)
	if v.VersionPrerelease != "" {
		fmt.Fprintf(&versionString, "-%s", v.VersionPrerelease)
	}

	if rev && v.Revision != "" {
		fmt.Fprintf(&versionString, " (%s)", v.Revision)
	}

	return versionString.String()
}

func (v *VersionInfo) String() string {
	return v.FullVersionNumber(true)
}
