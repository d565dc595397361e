package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivepull/internal/config"
	"github.com/tonimelisma/drivepull/internal/gdrive"
	"github.com/tonimelisma/drivepull/internal/pull"
)

// Pull command flags.
var (
	flagResourceKey string
	flagYes         bool
)

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <folder-id> <dest-dir>",
		Short: "Download a Drive folder tree and delete it remotely",
		Long: "pull walks the remote folder, downloads every file into dest-dir " +
			"(verifying each by MD5), deletes downloaded files from Drive, and " +
			"removes remote folders once they are empty. The root folder itself is kept.",
		Args: cobra.ExactArgs(2),
		RunE: runPull,
	}

	cmd.Flags().StringVar(&flagResourceKey, "resource-key", "", "access key for a link-shared root folder")
	cmd.Flags().BoolVar(&flagYes, "yes", false, "skip the destructive-action confirmation prompt")

	return cmd
}

func runPull(cmd *cobra.Command, args []string) error {
	folderID, destDir := args[0], args[1]

	logger := buildLogger()

	info, err := os.Stat(destDir)
	if err != nil {
		return fmt.Errorf("destination %s: %w", destDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", destDir)
	}

	// Destructive-action gate: nothing remote is touched until the user
	// confirms. --yes is for scripted runs.
	if !flagYes && !confirmDestructive(cmd.InOrStdin()) {
		statusf("Operation cancelled.\n")
		return nil
	}

	ctx := context.Background()

	creds, err := credentialsFromConfig()
	if err != nil {
		return err
	}

	ts, err := gdrive.TokenSourceFromFile(ctx, config.TokenPath(), creds, logger)
	if err != nil {
		if errors.Is(err, gdrive.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in — run 'drivepull login' first")
		}

		return err
	}

	chunkSize, err := resolvedCfg.ChunkSizeBytes()
	if err != nil {
		return err
	}

	// No client-wide timeout: chunk downloads can legitimately run long,
	// and each request already carries the command context.
	client := gdrive.NewClient(gdrive.DefaultBaseURL, &http.Client{}, ts,
		resolvedCfg.Transfers.MaxRetryAttempts, logger)

	renderer := newProgressRenderer(os.Stderr, flagQuiet)

	walker := pull.NewWalker(client, pull.Options{
		ChunkSize: chunkSize,
		Workers:   resolvedCfg.Transfers.ParallelTransfers,
		Observer:  renderer.Observe,
		Logger:    logger,
	})

	logger.Info("starting pull",
		"folder_id", folderID,
		"destination", destDir,
	)

	report, err := walker.Run(ctx, folderID, flagResourceKey, destDir)

	renderer.Finish()

	if err != nil {
		return fmt.Errorf("pull aborted: %w", err)
	}

	printSummary(report)
	logger.Info("operation completed", "failures", report.Failures())

	return nil
}

// confirmDestructive reads an explicit yes from the user before any
// remote deletion can happen.
func confirmDestructive(in io.Reader) bool {
	fmt.Fprint(os.Stderr, "\nWARNING: files are DELETED from Google Drive once downloaded.\n"+
		"This is a destructive action. Type 'yes' or 'y' to proceed: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// printSummary reports the terminal counts for the run.
func printSummary(report *pull.Report) {
	statusf("Transferred %d file(s) (%s), skipped %d already-present.\n",
		report.Transferred, formatBytes(report.BytesMoved), report.Skipped)
	statusf("Reaped %d empty remote folder(s).\n", report.FoldersReaped)

	if failures := report.Failures(); failures > 0 {
		statusf("%d item(s) failed or were left behind — re-run to retry (details in the log).\n", failures)
	}
}
