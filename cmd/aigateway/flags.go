package main

import "fmt"

// version is set at build time via -ldflags "-X main.version=...";
// it stays "dev" for local builds.
var version = "dev"

// stringFlag scans argv for "--name value" pairs, shared by the subcommands
// that don't need the full config.ParseCLIArgs grammar (login, tui extras).
func stringFlag(argv []string, name string) (string, bool) {
	for i, arg := range argv {
		if arg == name && i+1 < len(argv) {
			return argv[i+1], true
		}
	}
	return "", false
}

func printVersion() {
	fmt.Println("aigateway " + version)
}
