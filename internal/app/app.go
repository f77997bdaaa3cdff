package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "sources":
		return runSources(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "classify":
		return runClassify(args[1:])
	case "slate":
		return runSlate(args[1:])
	case "deck":
		return runDeck(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "bubble CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bubble <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  migrate   Create or update the database schema")
	fmt.Fprintln(os.Stderr, "  sources   List registered feed sources")
	fmt.Fprintln(os.Stderr, "  ingest    Fetch configured feeds and store normalized items")
	fmt.Fprintln(os.Stderr, "  classify  Re-score stored items for article quality")
	fmt.Fprintln(os.Stderr, "  slate     Print the ranked slate for a preference set")
	fmt.Fprintln(os.Stderr, "  deck      Build a swipeable deck for a user")
	fmt.Fprintln(os.Stderr, "  serve     Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"bubble <command> -h\" for command-specific flags.")
}
