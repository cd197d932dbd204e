package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "open":
		return runOpen(args[1:])
	case "config":
		return runConfig(args[1:])
	case "downloads":
		return runDownloads(args[1:])
	case "script":
		return runScript(args[1:])
	case "serve":
		return runServe(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("streamshell: browser shell for a self-hosted streaming server")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  streamshell config set --server <url> [--port 3001]")
	fmt.Println("  streamshell open")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  open       open the streaming page in the controlled browser")
	fmt.Println("  config     show/set/reset the server address")
	fmt.Println("  downloads  list, fetch, open or delete downloaded files")
	fmt.Println("  script     print the page bridge script")
	fmt.Println("  serve      run the HTTP bridge endpoint without a browser")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Every command accepts --config <path> (default ~/.streamshell/config.yaml)")
	fmt.Println("  - Use --json on list/show commands for machine-readable output")
	fmt.Println("  - STREAMSHELL_* environment variables override config values")
}
