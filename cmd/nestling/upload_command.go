package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"nestling/internal/pipeline"
)

func newUploadCommand(cmdCtx *commandContext) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "upload <photo>...",
		Short: "Convert and upload photos to the album",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := buildItems(args, label)
			if err != nil {
				return err
			}
			return runBatch(cmd, cmdCtx, items)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Display label (single photo only)")
	return cmd
}

// buildItems turns CLI arguments into pipeline input, resolving each path and
// verifying the file exists before any remote work starts.
func buildItems(args []string, label string) ([]pipeline.RawItem, error) {
	if label != "" && len(args) > 1 {
		return nil, errors.New("--label applies to a single photo")
	}
	items := make([]pipeline.RawItem, 0, len(args))
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", arg, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("photo %s is a directory", arg)
		}
		items = append(items, pipeline.RawItem{SourceRef: path, Label: label})
	}
	return items, nil
}

// runBatch executes one upload batch end to end: lock, run, persist
// failures, and report. Shared by the upload and retry commands.
func runBatch(cmd *cobra.Command, cmdCtx *commandContext, items []pipeline.RawItem) error {
	lock, err := cmdCtx.acquireLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := cmdCtx.openLogger()
	if err != nil {
		return err
	}
	store, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sink := newProgressPrinter(cmd.OutOrStdout())
	runner, err := cmdCtx.buildRunner(sink, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := runner.Run(ctx, items)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}

	// Persist with a fresh context: the batch context is already dead when
	// the run was cancelled, but the retry entries still need to survive.
	if len(result.Failures) > 0 {
		if err := store.SaveBatch(context.Background(), result.BatchID, result.Failures); err != nil {
			return fmt.Errorf("persist retry entries: %w", err)
		}
	}
	removeSettled(store, result)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded %d of %d photos.\n", result.Completed, result.Total)
	if len(result.Failures) > 0 {
		fmt.Fprintf(out, "%d pending in the retry queue; run 'nestling retry' to resume.\n", len(result.Failures))
	}

	if runErr != nil {
		return runErr
	}
	if failed := result.Total - result.Completed; failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, result.Total)
	}
	return nil
}

// removeSettled drops retry entries for tasks that completed in this run, so
// a successful resubmission clears its stored entry.
func removeSettled(store interface {
	Remove(ctx context.Context, taskIDs ...string) error
}, result *pipeline.BatchResult) {
	var done []string
	for _, task := range result.Tasks {
		if task.Stage == pipeline.StageComplete {
			done = append(done, task.ID)
		}
	}
	if len(done) > 0 {
		_ = store.Remove(context.Background(), done...)
	}
}
