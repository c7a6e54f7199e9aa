// conflictadm is the admin CLI for the migration conflict backlog: inspect
// conflict status, import and export resolution rules, and clean up session
// groups.
package main

import (
	"fmt"
	"os"

	"github.com/c0deZ3R0/go-migrate-kit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
