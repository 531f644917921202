// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package judge

import (
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// allowedPrefixes are the only roots file-based test cases may read
// from.
var allowedPrefixes = []string{
	"/app/test_cases/",
	"/tmp/",
}

// fileCacheSize bounds the resolver cache; hidden test sets reuse the
// same input files across every submission, so hits dominate.
const fileCacheSize = 256

// fileResolver reads test-case files from the whitelisted roots, with
// an LRU over contents.
type fileResolver struct {
	cache *lru.Cache[string, string]
}

func newFileResolver() *fileResolver {
	cache, _ := lru.New[string, string](fileCacheSize)
	return &fileResolver{cache: cache}
}

// resolvePath normalizes the relative spelling and enforces the
// whitelist.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "./test_cases/") {
		path = strings.Replace(path, "./test_cases/", "/app/test_cases/", 1)
	}
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(path, prefix) && !strings.Contains(path, "..") {
			return path, nil
		}
	}
	return "", &BadRequestError{Msg: fmt.Sprintf("File path not allowed: %s", path)}
}

func (r *fileResolver) read(path string) (string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if content, ok := r.cache.Get(resolved); ok {
		return content, nil
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return "", &BadRequestError{Msg: fmt.Sprintf("Error reading file %s: %v", path, err)}
	}
	content := string(raw)
	r.cache.Add(resolved, content)
	return content, nil
}

// input returns the test input, preferring the file reference.
func (r *fileResolver) input(tc *TestCase) (string, error) {
	if tc.InputFile != "" {
		return r.read(tc.InputFile)
	}
	return tc.Input, nil
}

// expected returns the expected output, preferring the file reference.
func (r *fileResolver) expected(tc *TestCase) (string, error) {
	if tc.ExpectedOutputFile != "" {
		return r.read(tc.ExpectedOutputFile)
	}
	return tc.ExpectedOutput, nil
}
