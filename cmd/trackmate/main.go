// Command trackmate runs the job-application tracker API and its
// maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/nhle/trackmate/internal/theme"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("error:"), err)
		os.Exit(1)
	}
}
