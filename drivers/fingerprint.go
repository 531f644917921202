// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package drivers

import (
	"os/exec"
	"regexp"
	"strings"

	version "github.com/hashicorp/go-version"
)

// Fingerprint describes one language toolchain as detected on the host.
type Fingerprint struct {
	Language  string `json:"language"`
	Binary    string `json:"binary"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

// probe describes how to interrogate one toolchain binary.
type probe struct {
	language string
	binary   string
	args     []string
}

var probes = []probe{
	{"python", "python3", []string{"--version"}},
	{"javascript", "node", []string{"--version"}},
	{"java", "javac", []string{"-version"}},
	{"cpp", "g++", []string{"--version"}},
	{"csharp", "dotnet", []string{"--version"}},
}

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// Fingerprints probes every toolchain and reports availability plus a
// parsed version where one could be extracted. Probes are best effort;
// a toolchain that exists but prints something unparseable is still
// reported as available.
func (r *Registry) Fingerprints() []*Fingerprint {
	out := make([]*Fingerprint, 0, len(probes))
	for _, p := range probes {
		out = append(out, r.fingerprint(p))
	}
	return out
}

func (r *Registry) fingerprint(p probe) *Fingerprint {
	fp := &Fingerprint{Language: p.language, Binary: p.binary}

	path, err := exec.LookPath(p.binary)
	if err != nil {
		return fp
	}
	fp.Available = true

	// javac writes its version to stderr on some JDKs, so both streams
	// are scanned.
	raw, _ := exec.Command(path, p.args...).CombinedOutput()
	fp.Version = parseToolVersion(string(raw))
	return fp
}

// parseToolVersion extracts the first semver-ish token from version
// output and normalizes it through go-version. Returns "" when nothing
// parseable is found.
func parseToolVersion(raw string) string {
	match := versionRe.FindString(strings.TrimSpace(raw))
	if match == "" {
		return ""
	}
	v, err := version.NewVersion(match)
	if err != nil {
		return ""
	}
	return v.String()
}
