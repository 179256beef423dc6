// Command portalctl drives a portalAuth session from the terminal and can
// serve the portal's guarded areas over HTTP.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
