// Command greenboard-print converts scanned greenboard lecture-note PDFs into
// printer-friendly PDFs: dark pages are inverted, residual black bars removed,
// pages optionally packed two per A4 sheet, and every page stamped with its
// source label and page counter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/greenboard-print-service/internal/pdfproc"
)

// Define named types for each section of the configuration.
type configPaths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
}

type configLogsDir struct {
	GreenboardPrint string `toml:"greenboard_print"`
}

type configSettings struct {
	DPI          int  `toml:"dpi"`
	Workers      int  `toml:"workers"`
	CombinePages bool `toml:"combine_pages"`
}

type configProcessing struct {
	DarkFractionThreshold float64 `toml:"dark_fraction_threshold"`
	VariationThreshold    float64 `toml:"variation_threshold"`
	BrightnessThreshold   float64 `toml:"brightness_threshold"`
	BarMinHeightRatio     float64 `toml:"bar_min_height_ratio"`
	BarMargin             int     `toml:"bar_margin"`
	NoBarsMaxMargin       int     `toml:"no_bars_max_margin"`
}

type configOverlay struct {
	FontPaths []string `toml:"font_paths"`
}

// config represents the structure of the project.toml file, using named types.
type config struct {
	Paths      configPaths      `toml:"paths"`
	LogsDir    configLogsDir    `toml:"logs_dir"`
	Settings   configSettings   `toml:"settings"`
	Processing configProcessing `toml:"processing"`
	Overlay    configOverlay    `toml:"overlay"`
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	// The `run` function contains the core application logic.
	// We call it and then os.Exit to ensure deferred functions are run
	// correctly.
	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main logic function, separated from main to allow for easier
// testing and clean exit handling.
func run(ctx context.Context) error {
	projectRoot, configPath, err := configurator.FindProjectRoot(".")
	if err != nil {
		return fmt.Errorf("could not find project root: %w", err)
	}

	cfg, err := safeLoadConfig(configPath)
	if err != nil {
		return err
	}

	flgs := parseFlags()
	options := mergeConfigAndFlags(&cfg, flgs)

	return processWithLogger(ctx, &options, projectRoot, cfg.LogsDir.GreenboardPrint)
}

// safeLoadConfig loads the TOML config, allowing missing file without error.
func safeLoadConfig(path string) (config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var emptyCfg config

			return emptyCfg, nil
		}

		return config{}, fmt.Errorf("error loading config file: %w", err)
	}

	return cfg, nil
}

// loadConfig reads and parses the project.toml file.
func loadConfig(path string) (config, error) {
	var cfg config

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		var zero config

		return zero, fmt.Errorf("failed to decode config file: %w", err)
	}

	return cfg, nil
}

// flags represents the command-line arguments.
type flags struct {
	inputPath    string
	outputPath   string
	label        string
	dpi          int
	workers      int
	combinePages bool
}

// parseFlags defines and parses command-line flags.
func parseFlags() flags {
	var flagsVar flags
	flag.StringVar(
		&flagsVar.inputPath,
		"input",
		"",
		"Input PDF file or directory of PDF files (required).",
	)
	flag.StringVar(
		&flagsVar.outputPath,
		"output",
		"",
		"Output PDF file (single input file) or directory (directory input).",
	)
	flag.StringVar(
		&flagsVar.label,
		"label",
		"",
		"Overlay label; defaults to the output file name without extension.",
	)
	flag.IntVar(&flagsVar.dpi, "dpi", 0, "Resolution in DPI for page rasterization.")
	flag.IntVar(&flagsVar.workers, "workers", 0, "Number of concurrent page workers.")
	flag.BoolVar(
		&flagsVar.combinePages,
		"combine-pages",
		false,
		"Pack two pages per A4 sheet.",
	)
	flag.Parse()

	return flagsVar
}

// mergeConfigAndFlags combines settings from the config file and command-line
// flags. Flags take precedence over the config file settings.
func mergeConfigAndFlags(cfg *config, flgs flags) pdfproc.Options {
	opts := pdfproc.Options{
		ProgressBarOutput:     nil,
		InputPath:             cfg.Paths.InputDir,
		OutputPath:            cfg.Paths.OutputDir,
		Label:                 flgs.label,
		FontPaths:             cfg.Overlay.FontPaths,
		DPI:                   cfg.Settings.DPI,
		Workers:               cfg.Settings.Workers,
		CombinePages:          cfg.Settings.CombinePages || flgs.combinePages,
		DarkFractionThreshold: cfg.Processing.DarkFractionThreshold,
		VariationThreshold:    cfg.Processing.VariationThreshold,
		BrightnessThreshold:   cfg.Processing.BrightnessThreshold,
		BarMinHeightRatio:     cfg.Processing.BarMinHeightRatio,
		BarMargin:             cfg.Processing.BarMargin,
		NoBarsMaxMargin:       cfg.Processing.NoBarsMaxMargin,
	}

	// Command-line flags override config file values.
	if flgs.inputPath != "" {
		opts.InputPath = flgs.inputPath
	}

	if flgs.outputPath != "" {
		opts.OutputPath = flgs.outputPath
	}

	if flgs.dpi > 0 {
		opts.DPI = flgs.dpi
	}

	if flgs.workers > 0 {
		opts.Workers = flgs.workers
	}

	return opts
}

// processWithLogger sets up the logger and runs the processor against a single
// file or a directory batch.
func processWithLogger(
	ctx context.Context,
	options *pdfproc.Options,
	projectRoot, logDir string,
) error {
	log, err := setupLogger(projectRoot, logDir)
	if err != nil {
		return fmt.Errorf("could not set up logger: %w", err)
	}

	defer func() {
		cerr := log.Close()
		if cerr != nil {
			_, _ = fmt.Fprintf(
				os.Stderr,
				"failed to close logger: %v\n",
				cerr,
			)
		}
	}()

	singleFile, statErr := isRegularFile(options.InputPath)
	if statErr != nil {
		return statErr
	}

	processor := pdfproc.NewProcessor(options, log)

	if singleFile {
		return processSingleFile(ctx, processor, options)
	}

	procErr := processor.Process(ctx)
	if procErr != nil {
		return fmt.Errorf("PDF processing failed: %w", procErr)
	}

	return nil
}

// processSingleFile converts one PDF. The output flag names the output file
// directly; when absent the result lands next to the input.
func processSingleFile(
	ctx context.Context,
	processor *pdfproc.Processor,
	options *pdfproc.Options,
) error {
	outputPath := options.OutputPath
	if outputPath == "" {
		outputPath = pdfproc.OutputPathFor(
			filepath.Dir(options.InputPath),
			options.InputPath,
		)
	}

	dirErr := pdfproc.EnsureOutputDirectory(filepath.Dir(outputPath))
	if dirErr != nil {
		return dirErr
	}

	procErr := processor.ProcessOnePDF(ctx, options.InputPath, outputPath)
	if procErr != nil {
		return fmt.Errorf("PDF processing failed: %w", procErr)
	}

	return nil
}

// isRegularFile reports whether the input path names a file rather than a
// directory. A missing input path is reported here, before any work starts.
func isRegularFile(path string) (bool, error) {
	if path == "" {
		return false, pdfproc.ErrInputPathRequired
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return false, fmt.Errorf("input path: %w", statErr)
	}

	return !info.IsDir(), nil
}

// setupLogger initializes the logger, creating the log directory if needed.
func setupLogger(projectRoot, logDirConfig string) (*logger.Logger, error) {
	logDir := logDirConfig
	if logDir == "" {
		logDir = filepath.Join(projectRoot, "logs", "greenboard_print")
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("20060102_150405"))

	log, err := logger.New(logDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}
