package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cover-letter-agent/internal/ingestion"
	"github.com/jonathan/cover-letter-agent/internal/observability"
	"github.com/jonathan/cover-letter-agent/internal/pipeline"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a cover letter for a job description",
	Long: "Analyze the resume and job description, plan a strategy and write a structured cover letter. " +
		"With --context the letter is drafted from stored documents instead and then reviewed for ATS " +
		"keywords, unsupported claims and terminology.",
	RunE: runGenerate,
}

var (
	generateResume     string
	generateResumeID   string
	generateJob        string
	generateOut        string
	generatePrefs      []string
	generateUseContext bool
	generateVerbose    bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateResume, "resume", "r", "", "Path to the resume file")
	generateCmd.Flags().StringVar(&generateResumeID, "resume-id", "", "Stored resume to use when --resume is not given (with --context)")
	generateCmd.Flags().StringVarP(&generateJob, "job", "j", "", "Path to the job description file (required)")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write the letter to this file instead of stdout")
	generateCmd.Flags().StringArrayVarP(&generatePrefs, "pref", "p", nil, "Writing preference as key=value (repeatable)")
	generateCmd.Flags().BoolVar(&generateUseContext, "context", false, "Draft from retrieved context and review the draft")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print analyses and progress")

	_ = generateCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if generateResume == "" && !generateUseContext {
		return fmt.Errorf("--resume is required unless --context is set")
	}
	prefs, err := parseMetadata(generatePrefs)
	if err != nil {
		return err
	}
	preferences := make(map[string]any, len(prefs))
	for k, v := range prefs {
		preferences[k] = v
	}

	jobDescription, err := ingestion.ReadFile(generateJob)
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}
	var resume string
	if generateResume != "" {
		if resume, err = ingestion.ReadFile(generateResume); err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
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

	// Progress goes to stderr so stdout carries only the letter.
	printer := observability.NewPrinter(cmd.ErrOrStderr())
	var onProgress pipeline.ProgressCallback
	if generateVerbose {
		onProgress = func(e pipeline.ProgressEvent) {
			printer.PrintStep(e.Category, e.Step, e.Message)
		}
	}

	var letter string
	if generateUseContext {
		letter, err = generateFromContext(ctx, a.pipeline, printer, pipeline.GenerateRequest{
			JobDescription: jobDescription,
			ResumeID:       generateResumeID,
			ResumeContent:  resume,
			Preferences:    preferences,
			OnProgress:     onProgress,
		})
	} else {
		letter, err = compose(ctx, a.pipeline, printer, resume, jobDescription, preferences, onProgress)
	}
	if err != nil {
		return err
	}

	return writeLetter(cmd.OutOrStdout(), generateOut, letter)
}

func compose(ctx context.Context, p *pipeline.Pipeline, printer *observability.Printer, resume, jobDescription string, prefs map[string]any, onProgress pipeline.ProgressCallback) (string, error) {
	res, err := p.Compose(ctx, resume, jobDescription, prefs, onProgress)
	if err != nil {
		return "", fmt.Errorf("failed to generate cover letter: %w", err)
	}
	if generateVerbose {
		printer.PrintSkills(res.Skills)
		printer.PrintRequirements(res.Requirements)
		printer.PrintStrategy(res.Strategy)
	}
	return res.Text, nil
}

func generateFromContext(ctx context.Context, p *pipeline.Pipeline, printer *observability.Printer, req pipeline.GenerateRequest) (string, error) {
	res, err := p.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate cover letter: %w", err)
	}
	if ats, ok := res.Metadata[pipeline.MetaATSAnalysis].(*types.ATSAnalysis); ok {
		printer.PrintATSAnalysis(ats)
	}
	if suggestions, ok := res.Metadata[pipeline.MetaSuggestions].([]types.Suggestion); ok {
		printer.PrintSuggestions(suggestions)
	}
	return res.Content, nil
}

// writeLetter writes letter to path, or to w when path is empty
func writeLetter(w io.Writer, path, letter string) error {
	if path == "" {
		_, err := fmt.Fprintln(w, letter)
		return err
	}
	if err := os.WriteFile(path, []byte(letter+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Cover letter written to %s\n", path)
	return nil
}
