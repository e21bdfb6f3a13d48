// Command-line interface to octview tile stores.
// Provides commands to ingest a dataset, inspect it, and serve tiles.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/janelia-flyem/octview/octview"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")
)

const helpMessage = `
octview manages and serves multiscale tile stores for octree streaming clients

Usage: octview [options] <command>

      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	ingest <config.toml> <rows> <cols> <tile size>
	info   <config.toml>
	serve  <config.toml>

The config file is TOML, e.g.:

	[log]
	logfile = "/var/log/octview.log"

	[cache]
	cache_mbytes = 512
	fetch_workers = 8

	[store]
	engine = "badger"
	path = "/data/mytiles"

	[server]
	http_address = "localhost:8000"
`

func usage() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		octview.SetLogMode(octview.DebugMode)
	}

	command := strings.ToLower(flag.Args()[0])
	args := flag.Args()[1:]

	var err error
	switch command {
	case "about":
		fmt.Println("octview multiscale tile store tool")
	case "ingest":
		err = doIngest(args)
	case "info":
		err = doInfo(args)
	case "serve":
		err = doServe(args)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		log.Fatalf("octview %s: %v\n", command, err)
	}
}

func loadConfig(args []string) (*octview.Config, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("a config file path is required")
	}
	c, err := octview.LoadConfig(args[0])
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(); err != nil {
		return nil, err
	}
	return c, nil
}
