package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/app"
	catalogrepo "github.com/kailas-cloud/pickperfect/internal/repository/catalog"
	streamrepo "github.com/kailas-cloud/pickperfect/internal/repository/stream"
	"github.com/kailas-cloud/pickperfect/internal/version"
)

// maxLineBytes bounds a single NDJSON record.
const maxLineBytes = 1 << 20

var rootCmd = &cobra.Command{
	Use:           "producer",
	Short:         "Feed and administer the pickperfect catalog",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// --- publish ---

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Append product records to the ingestion stream",
	Long: `Append one stream entry per non-empty line of an NDJSON file.

Examples:
  producer publish --file products.ndjson
  cat products.ndjson | producer publish --file -`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")

		in, closeIn, err := openInput(file)
		if err != nil {
			return err
		}
		defer closeIn()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger, err := app.Bootstrap("producer")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		store, err := app.OpenStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		stream := streamrepo.New(store, streamrepo.Config{Stream: cfg.Ingest.Stream})
		n, err := publishLines(ctx, in, stream)
		logger.Info("Published products",
			zap.String("stream", cfg.Ingest.Stream),
			zap.Int("count", n),
		)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d products to %s\n", n, cfg.Ingest.Stream)
		return nil
	},
}

// --- drop-index ---

var dropIndexCmd = &cobra.Command{
	Use:   "drop-index",
	Short: "Drop the product index (documents are kept)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, logger, err := app.Bootstrap("producer")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		store, err := app.OpenStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		catalog, err := catalogrepo.New(store, cfg.CatalogLayout(), cfg.Vector())
		if err != nil {
			return err
		}
		if err := catalog.Drop(ctx); err != nil {
			return err
		}
		logger.Info("Index dropped", zap.String("index", cfg.Catalog.IndexName))
		fmt.Fprintf(cmd.OutOrStdout(), "dropped index %s\n", cfg.Catalog.IndexName)
		return nil
	},
}

func init() {
	publishCmd.Flags().String("file", "", `NDJSON file with one product per line ("-" for stdin)`)
	_ = publishCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(dropIndexCmd)
}

type publisher interface {
	Publish(ctx context.Context, payload string) (string, error)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// publishLines appends every non-blank line of r and returns how many
// entries were written before the first failure.
func publishLines(ctx context.Context, r io.Reader, pub publisher) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for line := 1; sc.Scan(); line++ {
		payload := strings.TrimSpace(sc.Text())
		if payload == "" {
			continue
		}
		if _, err := pub.Publish(ctx, payload); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}
