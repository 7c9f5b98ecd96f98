// Package cli implements the one-shot sustainedaway command.
//
// Every invocation prints exactly one JSON document on stdout and exits 0;
// failures are reported in the document's error field. Diagnostics go to stderr.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeevankumar-m/sustainedaway/config"
	"github.com/jeevankumar-m/sustainedaway/internal/bootstrap"
	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
	"github.com/jeevankumar-m/sustainedaway/internal/usecase"
)

// Analyzer is the subset of the analysis service used by the CLI
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, request *domain.ProductRequest) *domain.ProductAnalysis
	AnalyzeProducts(ctx context.Context, requests []*domain.ProductRequest) []*domain.ProductAnalysis
	AnalyzeImage(ctx context.Context, request domain.ScanRequest) (*domain.ImageAnalysis, string)
	AnalyzeBill(ctx context.Context, request domain.ScanRequest) (*domain.BillAnalysis, string)
}

// OpenFunc builds an analyzer from configuration. The returned close
// function releases its resources.
type OpenFunc func(ctx context.Context, cfg *config.Config) (Analyzer, func() error, error)

// Options wires the command to its environment
type Options struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	LoadConfig func() (*config.Config, error)
	Open       OpenFunc
}

func (o *Options) withDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.LoadConfig == nil {
		o.LoadConfig = config.Load
	}
	if o.Open == nil {
		o.Open = openService
	}
}

// openService builds the real analysis service. The CLI has no user
// identity, so scan history is never written.
func openService(ctx context.Context, cfg *config.Config) (Analyzer, func() error, error) {
	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{SkipHistory: true})
	if err != nil {
		return nil, nil, err
	}
	return components.Service, components.Close, nil
}

// RootCmd creates the sustainedaway command tree
func RootCmd(opts Options) *cobra.Command {
	opts.withDefaults()

	var (
		logLevel string
		logJSON  bool
	)

	root := &cobra.Command{
		Use:           "sustainedaway",
		Short:         "Sustainability analysis for products, product photos and receipts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := logging.New(&logging.Config{
				Level:      logLevel,
				JSON:       logJSON,
				Output:     opts.Stderr,
				TimeFormat: "15:04:05",
			})
			logging.SetDefault(logger)
			cmd.SetContext(logging.ContextWithLogger(cmd.Context(), logger))
		},
	}
	// Stdout carries only the JSON document; help and usage go to stderr
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stderr)
	root.SetErr(opts.Stderr)
	root.Args = cobra.ArbitraryArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		logging.FromContext(cmd.Context()).Error("No command given", "args", args)
		return writeJSON(cmd.Context(), opts.Stdout, usecase.ProductInputFailure(), nil)
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		logging.FromContext(cmd.Context()).Error("Invalid flags", "command", cmd.Name(), "err", err)
		return writeJSON(cmd.Context(), opts.Stdout, inputFailureFor(cmd), nil)
	})

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "diagnostic log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit diagnostics as JSON")

	root.AddCommand(
		productCmd(&opts),
		imageCmd(&opts),
		billCmd(&opts),
	)

	return root
}

// Execute runs the command tree against the process environment
func Execute(ctx context.Context) error {
	return RootCmd(Options{}).ExecuteContext(ctx)
}

// open loads configuration and builds the analyzer
func (o *Options) open(ctx context.Context) (Analyzer, func() error, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return o.Open(ctx, cfg)
}

// writeJSON prints v as a single line. When v cannot be encoded the payload
// built by fallback is printed instead, so stdout always holds one document.
func writeJSON(ctx context.Context, w io.Writer, v any, fallback func(error) any) error {
	data, err := encodeLine(v)
	if err != nil {
		logging.FromContext(ctx).Error("Failed to encode result", "err", err)
		if fallback == nil {
			fallback = func(error) any { return usecase.ProductInputFailure() }
		}
		if data, err = encodeLine(fallback(err)); err != nil {
			return err
		}
	}
	_, err = w.Write(data)
	return err
}

func encodeLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inputFailureFor picks the input-error payload matching the command's schema
func inputFailureFor(cmd *cobra.Command) any {
	switch cmd.Name() {
	case "image":
		return usecase.ImageInputFailure(usecase.MsgInvalidInput)
	case "bill":
		return usecase.BillInputFailure(usecase.MsgInvalidInput)
	default:
		return usecase.ProductInputFailure()
	}
}

func closeQuietly(ctx context.Context, closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logging.FromContext(ctx).Warn("Failed to release resources", "err", err)
	}
}
