// Command analyze runs the full cohort analysis: ingest counts and metadata,
// translate identifiers, normalize, infer regulatory activity, and run the
// statistical battery for the configured entity.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rnaseqcli/internal/activity"
	"rnaseqcli/internal/annotation"
	"rnaseqcli/internal/config"
	"rnaseqcli/internal/exporter"
	"rnaseqcli/internal/infrastructure"
	"rnaseqcli/internal/ingest"
	"rnaseqcli/internal/pipeline"
	"rnaseqcli/internal/tables"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	countsPath := flag.String("counts", "", "count matrix (.xlsx or delimited), overrides config")
	metadataPath := flag.String("metadata", "", "sample metadata (.xlsx or delimited), overrides config")
	annotationPath := flag.String("annotations", "", "identifier annotation TSV, overrides config")
	networkPath := flag.String("network", "", "regulator-target network CSV, overrides config")
	outDir := flag.String("out", "", "output directory, overrides config")
	entity := flag.String("entity", "", "entity to test, overrides config")
	sheet := flag.String("sheet", "", "workbook sheet name (defaults to the first sheet)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *countsPath, *metadataPath, *annotationPath, *networkPath, *outDir, *entity)
	if cfg.Paths.CountsFile == "" || cfg.Paths.MetadataFile == "" {
		slog.Error("Counts and metadata inputs are required (flags or config)")
		os.Exit(1)
	}
	if err := cfg.Analysis.Validate(); err != nil {
		slog.Error("Invalid analysis request", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting cohort analysis",
		slog.String("counts", cfg.Paths.CountsFile),
		slog.String("metadata", cfg.Paths.MetadataFile),
		slog.String("entity", cfg.Analysis.Entity),
		slog.String("output_dir", cfg.Paths.OutputDir))

	state, err := buildState(cfg, *sheet, logger)
	if err != nil {
		logger.Error("Failed to load inputs", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner := pipeline.NewRunner(pipeline.AnalysisStages(), logger)
	runID, err := runner.Run(context.Background(), state)
	if err != nil {
		logger.Error("Analysis run failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeResults(cfg, state, runID, logger); err != nil {
		logger.Error("Failed to write results", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, msg := range state.Warnings.Messages() {
		logger.Warn("Run warning", slog.String("warning", msg))
	}
	fmt.Printf("Analysis complete: run %s, %d warnings, results in %s\n",
		runID, state.Warnings.Len(), cfg.Paths.OutputDir)
}

func applyOverrides(cfg *config.Config, counts, metadata, annotations, network, out, entity string) {
	if counts != "" {
		cfg.Paths.CountsFile = counts
	}
	if metadata != "" {
		cfg.Paths.MetadataFile = metadata
	}
	if annotations != "" {
		cfg.Paths.AnnotationFile = annotations
	}
	if network != "" {
		cfg.Paths.NetworkFile = network
	}
	if out != "" {
		cfg.Paths.OutputDir = out
	}
	if entity != "" {
		cfg.Analysis.Entity = entity
	}
}

// buildState reads every configured input artifact into the pipeline state.
func buildState(cfg *config.Config, sheet string, logger *slog.Logger) (*pipeline.State, error) {
	counts, err := readCounts(cfg.Paths.CountsFile, sheet)
	if err != nil {
		return nil, fmt.Errorf("counts %s: %w", cfg.Paths.CountsFile, err)
	}
	logger.Info("Counts loaded",
		slog.Int("entities", counts.NEntities()),
		slog.Int("samples", counts.NSamples()))

	metadata, err := readMetadata(cfg.Paths.MetadataFile, sheet)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", cfg.Paths.MetadataFile, err)
	}

	state := &pipeline.State{
		Counts:   counts,
		Metadata: metadata,
		Analysis: cfg.Analysis,
	}

	if cfg.Paths.AnnotationFile != "" {
		f, err := os.Open(cfg.Paths.AnnotationFile)
		if err != nil {
			return nil, fmt.Errorf("annotations: %w", err)
		}
		annot, err := annotation.LoadAnnotations(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("annotations %s: %w", cfg.Paths.AnnotationFile, err)
		}
		state.Annotations = annot
		logger.Info("Annotations loaded", slog.Int("rows", annot.NRows()))
	}

	if cfg.Paths.NetworkFile != "" {
		f, err := os.Open(cfg.Paths.NetworkFile)
		if err != nil {
			return nil, fmt.Errorf("network: %w", err)
		}
		network, err := ingest.ReadNetworkCSV(f, delimiterFor(cfg.Paths.NetworkFile))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", cfg.Paths.NetworkFile, err)
		}
		state.Network = network
		state.Scorer = activity.WeightedMeanScorer{}
		logger.Info("Network loaded", slog.Int("regulators", len(network.Regulators())))
	}

	return state, nil
}

func readCounts(path, sheet string) (*tables.Matrix, error) {
	if isWorkbook(path) {
		return ingest.ReadCountsWorkbook(path, sheet)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadCountsCSV(f, delimiterFor(path))
}

func readMetadata(path, sheet string) (*tables.Table, error) {
	if isWorkbook(path) {
		return ingest.ReadMetadataWorkbook(path, sheet)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadMetadataCSV(f, delimiterFor(path))
}

func isWorkbook(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}

func delimiterFor(path string) rune {
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		return '\t'
	}
	return ','
}

func writeResults(cfg *config.Config, state *pipeline.State, runID string, logger *slog.Logger) error {
	w := exporter.NewWriter(cfg.Paths.OutputDir, logger)

	var artifacts []string
	if state.TidyExpression != nil {
		path, err := w.WriteTable("tidy_expression", state.TidyExpression)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, path)
	}
	if state.Activity != nil {
		path, err := w.WriteTable("activity", state.Activity.Tidy)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, path)
	}
	paths, err := w.WriteBattery(state.Battery)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, paths...)

	summary := exporter.RunSummary{
		RunID:       runID,
		Entity:      cfg.Analysis.Entity,
		GeneratedAt: time.Now().UTC(),
		Warnings:    state.Warnings.Messages(),
		Artifacts:   artifacts,
	}
	if state.Normalized != nil {
		summary.Kept = state.Normalized.Summary.Kept
		summary.Discarded = state.Normalized.Summary.Discarded
	}
	path, err := w.WriteSummary(summary)
	if err != nil {
		return err
	}
	logger.Info("Results written",
		slog.Int("artifacts", len(artifacts)),
		slog.String("summary", path))
	return nil
}
