// Command vm loads a Smalltalk-80 V2 interchange snapshot and runs it.
// It replaces the teacher's flag.Bool("debug", ...) entry point with a
// cobra root command: an optional image-path argument plus --debug,
// --config, and --trace-gc flags (SPEC_FULL.md §A "CLI").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rochus-keller/st80vm/internal/config"
	"github.com/rochus-keller/st80vm/internal/debugger"
	"github.com/rochus-keller/st80vm/internal/hostadapter"
	"github.com/rochus-keller/st80vm/internal/interp"
	"github.com/rochus-keller/st80vm/internal/snapshot"
	"github.com/rochus-keller/st80vm/internal/vmlog"
)

var (
	debugMode  bool
	configPath string
	traceGC    bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm [image]",
		Short: "Run a Smalltalk-80 V2 interchange-format image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := ""
			if len(args) == 1 {
				imagePath = args[0]
			}
			return runImage(imagePath)
		},
	}
	cmd.Flags().BoolVar(&debugMode, "debug", false, "enter the interactive single-step debugger")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a .stvm.toml sidecar (default: alongside the image)")
	cmd.Flags().BoolVar(&traceGC, "trace-gc", false, "set the config's trace.gc toggle (the collector itself writes no log lines)")
	return cmd
}

func runImage(imagePath string) error {
	cfg, err := config.Load(imagePath, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if traceGC {
		cfg.Trace.GC = true
	}

	logger := vmlog.New(cfg.Trace.Bytecodes || cfg.Trace.GC || cfg.Trace.Primitives)
	vmlog.SetGlobal(logger)
	log := vmlog.L()

	path := imagePath
	if path == "" {
		path = findImage(cfg)
		if path == "" {
			return fmt.Errorf("no image path given and none found in image_search_paths")
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()

	om, err := snapshot.Load(f)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	log.Infow("image loaded", "path", path)

	display := hostadapter.NewHeadlessDisplay()
	files := hostadapter.NewOSFiles()
	clipboard := hostadapter.NewNullClipboard()
	vm := interp.New(om, display, files, clipboard)

	if debugMode {
		return debugger.Run(vm)
	}
	return vm.Run()
}

// findImage consults the configured search paths for any file ending in
// ".im" (spec.md §6.1's on-disk convention), the same "try a few default
// locations" behavior the teacher's own NewVirtualMachine skips in favor
// of requiring explicit file arguments — this module restores it because
// an image-bearing CLI is expected to Just Work against a project-local
// images/ directory.
func findImage(cfg config.Config) string {
	for _, dir := range cfg.ImageSearchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && len(e.Name()) > 3 && e.Name()[len(e.Name())-3:] == ".im" {
				return dir + string(os.PathSeparator) + e.Name()
			}
		}
	}
	return ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
