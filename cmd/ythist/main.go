// Command ythist ingests a YouTube watch-history export and answers
// analytics queries over it.
package main

import (
	"fmt"
	"os"

	"github.com/ArseniyKD/yt-history-analysis/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
