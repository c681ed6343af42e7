package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moamoa/moa-engine/internal/cli"
	"github.com/moamoa/moa-engine/internal/engine"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Process banking notifications",
		Long: `Process banking notifications from a file or stdin.

Each line is one notification in the form:

  source|user_id|group_id|text

where source is the SMS short code or app package that delivered it.
Lines that do not parse as transactions are counted and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Int("workers", 4, "Number of concurrent workers")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}

	var input io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	notifications, err := readNotifications(input)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		fmt.Println(cli.FormatInfo("No notifications to process"))
		return nil
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, err := initEngine(store)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(notifications),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Processing notifications..."),
	)

	var processed, skipped, duplicates, credited atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, n := range notifications {
		n := n
		g.Go(func() error {
			defer func() { _ = bar.Add(1) }()

			result, err := eng.Process(gctx, n)
			if err != nil {
				return fmt.Errorf("notification from %s failed: %w", n.SourceID, err)
			}
			if !result.Parsed {
				skipped.Add(1)
				return nil
			}
			processed.Add(1)
			if result.Dedup.PendingCase != nil {
				duplicates.Add(1)
			}
			for _, outcome := range result.AutoDeposit {
				if outcome.Contribution != nil {
					credited.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Processed %d transactions (%d lines skipped)", processed.Load(), skipped.Load())))
	if n := duplicates.Load(); n > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"%d duplicate cases need review: moa duplicates resolve", n)))
	}
	if n := credited.Load(); n > 0 {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d goal contributions credited", n)))
	}

	return nil
}

// readNotifications parses source|user|group|text lines. Malformed lines are
// logged and dropped rather than aborting the batch.
func readNotifications(r io.Reader) ([]engine.Notification, error) {
	var notifications []engine.Notification

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			slog.Warn("skipping malformed line", "line", lineNo)
			continue
		}

		notifications = append(notifications, engine.Notification{
			SourceID: strings.TrimSpace(parts[0]),
			UserID:   strings.TrimSpace(parts[1]),
			GroupID:  strings.TrimSpace(parts[2]),
			Text:     parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return notifications, nil
}
