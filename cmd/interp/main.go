// Command interp is the CLI driver for minilang (spec.md §6): it opens
// the source file, runs the compile-and-execute pipeline, and routes
// any diagnostic to stderr with a non-zero exit status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lookbusy1344/minilang/api"
	"github.com/lookbusy1344/minilang/compiler"
	"github.com/lookbusy1344/minilang/config"
	"github.com/lookbusy1344/minilang/vm"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to a config.toml (default: platform config directory)")
		maxSteps    = flag.Uint64("max-steps", 0, "Override the configured instruction-count limit (0: use config)")
		enableStats = flag.Bool("stats", false, "Write execution statistics as JSON after the run (to -stats-file, else the configured statistics output_file, else stderr)")
		statsFile   = flag.String("stats-file", "", "Write execution statistics to this file instead of the configured statistics output_file")
		serveMode   = flag.Bool("serve", false, "Start the HTTP+WebSocket run service instead of running a file")
		servePort   = flag.Int("port", 8080, "Run service port (used with -serve)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <source-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("minilang %s (commit %s, built %s)\n", Version, Commit, Date)
		os.Exit(0)
	}

	if *serveMode {
		runServer(*servePort)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	sourcePath := flag.Arg(0)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "interp: %v\n", err)
		os.Exit(1)
	}

	source, err := os.ReadFile(sourcePath) // #nosec G304 -- user-supplied source file
	if err != nil {
		fmt.Fprintf(os.Stderr, "interp: %v\n", err)
		os.Exit(1)
	}

	prog, diagErr := compiler.Compile(string(source), sourcePath)
	if diagErr != nil {
		fmt.Fprintln(os.Stderr, diagErr.Error())
		os.Exit(1)
	}

	limit := cfg.Execution.MaxSteps
	if *maxSteps > 0 {
		limit = *maxSteps
	}
	machine := vm.New(prog, os.Stdin, os.Stdout, vm.Limits{MaxSteps: limit})
	machine.Stats.Enabled = *enableStats || cfg.Execution.EnableStats

	if diagErr := machine.Run(); diagErr != nil {
		fmt.Fprintln(os.Stderr, diagErr.Error())
		os.Exit(1)
	}

	if machine.Stats.Enabled {
		if err := writeStats(machine, *statsFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "interp: failed to write statistics: %v\n", err)
			os.Exit(1)
		}
	}
}

// runServer starts the HTTP+WebSocket run service and blocks until
// SIGINT/SIGTERM, then shuts down gracefully.
func runServer(port int) {
	s := api.NewServer(port)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run service: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Printf("run service: shutdown error: %v", err)
	}
}

func writeStats(machine *vm.VM, explicitPath string, cfg *config.Config) error {
	path := explicitPath
	if path == "" {
		path = cfg.Statistics.OutputFile
	}
	if path == "" {
		return machine.Stats.ExportJSON(os.Stderr)
	}
	f, err := os.Create(path) // #nosec G304 -- user-configured statistics path
	if err != nil {
		return err
	}
	defer f.Close()
	return machine.Stats.ExportJSON(f)
}
