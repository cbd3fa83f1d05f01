//go:build mage

// Package main provides build targets for the crm project using Mage.
//
// Usage:
//
//	mage build       Compile the crm binary to bin/
//	mage serve       Build, initialize a local data dir and serve the API
//	mage test:all    Run every test
//	mage test:unit   Run tests without the race detector
//	mage test:race   Run tests with the race detector
//	mage test:cover  Write coverage.out and print per-function coverage
//	mage lint        Run golangci-lint
//	mage clean       Remove build artifacts
//	mage install     Install crm to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// localDataDir keeps development data out of the user's platform dirs.
const localDataDir = ".crm"

// Serve builds the binary and runs the HTTP API against .crm/ in the
// repository root. Set CRM_HTTP_ADDR to change the listen address.
func Serve() error {
	mg.Deps(Build)
	bin := filepath.Join(binaryDir, binaryName)
	dirs := []string{"--config-dir", localDataDir, "--data-dir", filepath.Join(localDataDir, "data")}
	if err := os.MkdirAll(localDataDir, 0o755); err != nil {
		return err
	}
	if err := sh.RunV(bin, append([]string{"init"}, dirs...)...); err != nil {
		return err
	}
	return sh.RunV(bin, append([]string{"serve"}, dirs...)...)
}
