package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/imageio"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
	"github.com/jeevankumar-m/sustainedaway/internal/usecase"
)

func productCmd(opts *Options) *cobra.Command {
	var batch bool

	cmd := &cobra.Command{
		Use:   "product",
		Short: "Analyze a product description read as JSON from stdin",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			if len(args) > 0 {
				log.Warn("Ignoring arguments; product reads stdin", "args", args)
			}

			input, err := io.ReadAll(opts.Stdin)
			if err != nil {
				log.Error("Failed to read stdin", "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.ProductInputFailure(), nil)
			}

			if batch {
				var requests []*domain.ProductRequest
				if err := json.Unmarshal(input, &requests); err != nil {
					log.Error("Invalid batch input", "err", err)
					return writeJSON(ctx, opts.Stdout, usecase.ProductInputFailure(), nil)
				}
				analyzer, closeFn, err := opts.open(ctx)
				if err != nil {
					log.Error("Failed to start analyzer", "err", err)
					return writeJSON(ctx, opts.Stdout, batchFailure(requests)(err), nil)
				}
				defer closeQuietly(ctx, closeFn)
				return writeJSON(ctx, opts.Stdout, analyzer.AnalyzeProducts(ctx, requests), batchFailure(requests))
			}

			var request domain.ProductRequest
			if err := json.Unmarshal(input, &request); err != nil {
				log.Error("Invalid input", "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.ProductInputFailure(), nil)
			}
			analyzer, closeFn, err := opts.open(ctx)
			if err != nil {
				log.Error("Failed to start analyzer", "err", err)
				return writeJSON(ctx, opts.Stdout, productStartupFailure(&request, err), nil)
			}
			defer closeQuietly(ctx, closeFn)
			return writeJSON(ctx, opts.Stdout, analyzer.AnalyzeProduct(ctx, &request), productFailure(&request))
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "read a JSON array of products and print an array of analyses")

	return cmd
}

func productStartupFailure(request *domain.ProductRequest, err error) *domain.ProductAnalysis {
	if request == nil {
		return usecase.ProductInputFailure()
	}
	return usecase.ProductFailure(request.Title, err)
}

func productFailure(request *domain.ProductRequest) func(error) any {
	return func(err error) any {
		return usecase.ProductFailure(request.Title, err)
	}
}

func batchFailure(requests []*domain.ProductRequest) func(error) any {
	return func(err error) any {
		results := make([]*domain.ProductAnalysis, len(requests))
		for i, request := range requests {
			results[i] = productStartupFailure(request, err)
		}
		return results
	}
}

func imageCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>",
		Short: "Analyze a photo of a single product",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if len(args) > 1 {
				log.Warn("Extra arguments ignored", "args", args[1:])
			}
			if len(args) == 0 || args[0] == "" {
				return writeJSON(ctx, opts.Stdout, usecase.ImageInputFailure(usecase.MsgNoImagePath), nil)
			}
			image, err := imageio.LoadFile(args[0])
			if err != nil {
				log.Error("Failed to load image", "path", args[0], "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.ImageFailure(err), nil)
			}

			analyzer, closeFn, err := opts.open(ctx)
			if err != nil {
				log.Error("Failed to start analyzer", "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.ImageFailure(err), nil)
			}
			defer closeQuietly(ctx, closeFn)

			analysis, _ := analyzer.AnalyzeImage(ctx, domain.ScanRequest{Image: image})
			return writeJSON(ctx, opts.Stdout, analysis, func(err error) any { return usecase.ImageFailure(err) })
		},
	}
}

func billCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "bill <path>",
		Short: "Analyze a photo of a shopping receipt",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if len(args) > 1 {
				log.Warn("Extra arguments ignored", "args", args[1:])
			}
			if len(args) == 0 || args[0] == "" {
				return writeJSON(ctx, opts.Stdout, usecase.BillInputFailure(usecase.MsgNoImagePath), nil)
			}
			image, err := imageio.LoadFile(args[0])
			if err != nil {
				log.Error("Failed to load bill image", "path", args[0], "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.BillFailure(err), nil)
			}

			analyzer, closeFn, err := opts.open(ctx)
			if err != nil {
				log.Error("Failed to start analyzer", "err", err)
				return writeJSON(ctx, opts.Stdout, usecase.BillFailure(err), nil)
			}
			defer closeQuietly(ctx, closeFn)

			analysis, _ := analyzer.AnalyzeBill(ctx, domain.ScanRequest{Image: image})
			return writeJSON(ctx, opts.Stdout, analysis, func(err error) any { return usecase.BillFailure(err) })
		},
	}
}
