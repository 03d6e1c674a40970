// Command aigateway runs the multi-protocol AI API gateway: a single HTTP
// server that accepts OpenAI, Claude, and Gemini-shaped requests and
// forwards them to whichever upstream provider is configured, round-robined
// across a pool of credentials per provider.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		runServe(os.Args[1:], log)
		return
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:], log)
	case "login":
		runLogin(os.Args[2:], log)
	case "tui":
		runTUI(os.Args[2:], log)
	case "-h", "--help", "help":
		printUsage()
	case "-v", "--version", "version":
		printVersion()
	default:
		runServe(os.Args[1:], log)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `aigateway [command] [flags]

Commands:
  serve   start the HTTP gateway (default)
  login   obtain an OAuth credential for a provider
  tui     open the admin dashboard over the running pool state

Run "aigateway <command> -h" for flags.`)
}
