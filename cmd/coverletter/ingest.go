package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/cover-letter-agent/internal/ingestion"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Add a document to the document store",
	Long: "Read a text, markdown or HTML file, split it into chunks, embed them and store them " +
		"so generation can retrieve them as context. With --active a resume is also saved as the active resume.",
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestDocType string
	ingestMeta    []string
	ingestActive  bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestDocType, "type", "t", retrieval.DocTypeResume, "Document type: resume, job_description or cover_letter")
	ingestCmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "Metadata as key=value (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestActive, "active", false, "Also store a resume as the active resume (requires DATABASE_URL)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if !retrieval.ValidDocType(ingestDocType) {
		return fmt.Errorf("unknown --type %q", ingestDocType)
	}
	if ingestActive && ingestDocType != retrieval.DocTypeResume {
		return fmt.Errorf("--active only applies to --type %s", retrieval.DocTypeResume)
	}
	metadata, err := parseMetadata(ingestMeta)
	if err != nil {
		return err
	}
	if _, ok := metadata["source"]; !ok {
		metadata["source"] = args[0]
	}

	content, err := ingestion.ReadFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return fmt.Errorf("document store is not configured: set an API key for embedding provider %q", cfg.Embedding.Provider)
	}

	res, err := a.store.Ingest(ctx, content, ingestDocType, metadata)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s as document %s (%d chunks)\n", args[0], res.ID, res.Chunks)

	if ingestActive {
		if a.db == nil {
			return fmt.Errorf("--active requires DATABASE_URL")
		}
		resume, err := a.db.SaveResume(ctx, "", content, metadata)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved active resume %q\n", resume.ID)
	}
	return nil
}

// parseMetadata turns key=value pairs into a map
func parseMetadata(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q: expected key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
