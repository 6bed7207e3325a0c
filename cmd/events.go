package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/magorder/internal/config"
	"github.com/papapumpkin/magorder/internal/telemetry"
)

var eventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "View JSONL telemetry events of enumeration runs",
	Long: `Reads and formats a JSONL telemetry file. Without an argument the
configured telemetry.path is read.

With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")

	path, err := resolveEventsPath(args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	// Print all existing events.
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), telemetry.FormatLine(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("events: read %s: %w", path, err)
	}

	if !follow {
		return nil
	}
	return tailFollow(cmd, f, path)
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until the command's context is cancelled.
func tailFollow(cmd *cobra.Command, f *os.File, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	w := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("events: watch %s: %w", path, err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			printNewLines(w, reader)
		}
	}
}

func printNewLines(w io.Writer, reader *bufio.Reader) {
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			fmt.Fprintln(w, telemetry.FormatLine(line))
		}
		if err != nil {
			return
		}
	}
}

// resolveEventsPath returns the file named on the command line, or the
// configured telemetry path.
func resolveEventsPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.Telemetry.Path == "" {
		return "", fmt.Errorf("events: no file given and telemetry.path is not set")
	}
	return cfg.Telemetry.Path, nil
}
