// Package main is the entry point for the crm CLI.
package main

import "github.com/mesh-intelligence/crm/internal/cli"

func main() {
	cli.Execute()
}
