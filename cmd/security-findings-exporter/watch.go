package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/lint"
)

// newWatchCmd creates the "watch" subcommand for rebuilding on configuration changes.
func newWatchCmd() *cobra.Command {
	var (
		lintOnly     bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild when the configuration file changes",
		Long: `Watch monitors the configuration file and rebuilds the template on change.

The watch command:
- Lints the resolved function environment on each change
- Rebuilds the template unless --lint-only is set
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    security-findings-exporter watch -c exporter.yaml -o template.json
    security-findings-exporter watch -c exporter.yaml --lint-only
    security-findings-exporter watch -c exporter.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, watchOptions{
				lintOnly:     lintOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip build")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch rebuilds once, then again after every change to the configuration
// file until ctx is done.
func runWatch(ctx context.Context, cmd *cobra.Command, opts watchOptions) error {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors replace files on save, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Watching: %s\n", absPath)
	rebuild(cmd, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, absPath) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(cmd, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "Watch error: %v\n", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

func isConfigEvent(event fsnotify.Event, configPath string) bool {
	if filepath.Clean(event.Name) != configPath {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// rebuild lints and, unless lintOnly, builds. Failures are reported and the
// watch goes on.
func rebuild(cmd *cobra.Command, opts watchOptions) {
	out := cmd.ErrOrStderr()

	p, err := loadProject(cmd)
	if err != nil {
		fmt.Fprintf(out, "Configuration error: %v\n", err)
		return
	}

	_, exp, err := p.compose()
	if err != nil {
		fmt.Fprintf(out, "Compose error: %v\n", err)
		return
	}

	result := lint.LintEnvironment(exp.Environment(), lint.Options{})
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "  %s %s: %s\n", issue.Severity, issue.Rule, issue.Message)
	}
	if !result.Success {
		fmt.Fprintln(out, "Lint failed, skipping build")
		return
	}
	if opts.lintOnly {
		fmt.Fprintln(out, "Lint passed")
		return
	}

	if err := runBuild(cmd, opts.outputFormat, opts.outputFile); err != nil {
		fmt.Fprintf(out, "Build error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Build succeeded")
}
