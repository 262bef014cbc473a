package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload grant documents into the intake store",
		Long: `Copy one or more grant documents into the pending intake directory and
register them with the workflow ledger. The source files are left
untouched.

Supported formats: PDF, DOCX, TXT, and Markdown. Metadata flags become
extraction hints for every uploaded file.

Examples:
  grantflow upload award_letter.pdf
  grantflow upload --agency NSF --year 2024 proposal.docx report.pdf
  grantflow upload --tag program=coastal --process notice.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("agency", "", "funding agency hint passed to extraction")
	cmd.Flags().String("year", "", "award year hint passed to extraction")
	cmd.Flags().StringArray("tag", nil, "extra metadata as key=value (repeatable)")
	cmd.Flags().Bool("process", false, "run extraction immediately after upload")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	agency, _ := cmd.Flags().GetString("agency")
	year, _ := cmd.Flags().GetString("year")
	tags, _ := cmd.Flags().GetStringArray("tag")
	processAfter, _ := cmd.Flags().GetBool("process")

	meta := make(map[string]string)
	if agency != "" {
		meta["agency"] = agency
	}
	if year != "" {
		meta["year"] = year
	}
	for _, tag := range tags {
		key, value, ok := strings.Cut(tag, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid tag %q (expected key=value)", tag)
		}
		meta[key] = value
	}

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	for _, path := range args {
		rec, uploadErr := app.store.Upload(ctx, path, meta)
		if uploadErr != nil {
			return fmt.Errorf("failed to upload %s: %w", path, uploadErr)
		}
		if registerErr := app.manager.Register(ctx, rec); registerErr != nil {
			return fmt.Errorf("failed to register %s: %w", path, registerErr)
		}
		fmt.Printf("%s  %s\n", rec.ID, rec.StoredName)
	}

	if processAfter {
		stats, processErr := app.engine.ProcessPending(ctx)
		if processErr != nil {
			return processErr
		}
		printStats("Processed", stats)
	}

	return nil
}
