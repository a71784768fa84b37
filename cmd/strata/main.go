// Command strata is the CLI for the strata data-access layer: migrations,
// ad-hoc queries, and backups against a strata-managed SQLite database.
package main

import "github.com/leapstack-labs/strata/internal/cli"

func main() {
	cli.Execute()
}
