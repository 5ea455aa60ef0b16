package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/html2epub/internal/config"
	"github.com/yuanying/html2epub/internal/converter"
	"github.com/yuanying/html2epub/internal/fetch"
)

const aboutText = `html2epub converts HTML documents into a single EPUB 2 book.
Images referenced by <img> elements are downloaded (three at a time),
stored under image/ and packaged next to the rewritten XHTML sections.
Proxy: the http_proxy environment variable is honored.`

var errNoInputs = errors.New("at least one input HTML file is required")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "html2epub [flags] <file.html>...",
		Short: "Convert HTML documents to an EPUB book",
		Long: `html2epub converts one or more HTML documents into an EPUB book.

Each document becomes one section, in the order given. Images are
downloaded into a working directory and embedded in the book.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if about, _ := cmd.Flags().GetBool("about"); about {
				fmt.Fprintln(cmd.OutOrStdout(), aboutText)
				return nil
			}

			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			opts.Logger.Info("converting", "documents", len(opts.Inputs), "output", opts.OutputPath)
			if err := converter.NewPipeline(opts).Convert(ctx); err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("title", "", `Book title (default "HTML")`)
	flags.String("author", "", `Book author (default "html_to_epub")`)
	flags.String("cover", "", "Cover image path (default: generated from the title)")
	flags.StringP("output", "o", "", `Output file path (default "output.epub")`)
	flags.Bool("cover-page", false, "Add a cover page before the first section")
	flags.Bool("drop-missing-images", false, "Remove images that failed to download instead of aborting")
	flags.String("work-dir", "", `Directory for downloaded images (default ".")`)
	flags.Bool("keep-images", false, "Keep downloaded images after a successful run")
	flags.Bool("no-normalize", false, "Keep HTML5-only markup as is")
	flags.String("config", "", "Config file (.toml, .yaml or .yml)")
	flags.String("log-level", "", `Log level: debug, info, warn, error (default "info")`)
	flags.String("log-format", "", `Log format: text, json (default "text")`)
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("about", false, "Show information about html2epub")

	return cmd
}

// readCLIOptions merges defaults, the optional config file and the flags
// that were set explicitly, in that order.
func readCLIOptions(cmd *cobra.Command, args []string) (converter.ConvertOptions, error) {
	if len(args) == 0 {
		return converter.ConvertOptions{}, errNoInputs
	}
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return converter.ConvertOptions{}, err
		}
		cfg = *loaded
	}

	stringFlag := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	boolFlag := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	stringFlag("title", &cfg.Title)
	stringFlag("author", &cfg.Author)
	stringFlag("cover", &cfg.Cover)
	stringFlag("output", &cfg.Output)
	stringFlag("work-dir", &cfg.WorkDir)
	stringFlag("log-level", &cfg.Log.Level)
	stringFlag("log-format", &cfg.Log.Format)
	boolFlag("cover-page", &cfg.CoverPage)
	boolFlag("keep-images", &cfg.KeepImages)
	if drop, _ := flags.GetBool("drop-missing-images"); drop {
		cfg.MissingImages = string(converter.PolicyDrop)
	}
	if noNormalize, _ := flags.GetBool("no-normalize"); noNormalize {
		cfg.Normalize = false
	}

	logLevel := strings.ToLower(cfg.Log.Level)
	if _, ok := parseLogLevel(logLevel); !ok {
		return converter.ConvertOptions{}, fmt.Errorf("invalid --log-level %q: must be one of debug, info, warn, error", cfg.Log.Level)
	}
	logFormat := strings.ToLower(cfg.Log.Format)
	if logFormat != "" && logFormat != "text" && logFormat != "json" {
		return converter.ConvertOptions{}, fmt.Errorf("invalid --log-format %q: must be one of text, json", cfg.Log.Format)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		logLevel = "debug"
	}

	policy, err := converter.ParseMissingImagePolicy(cfg.MissingImages)
	if err != nil {
		return converter.ConvertOptions{}, err
	}

	proxy, err := cfg.ProxyURL()
	if err != nil {
		return converter.ConvertOptions{}, err
	}

	var cover []byte
	if cfg.Cover != "" {
		if cover, err = os.ReadFile(cfg.Cover); err != nil {
			return converter.ConvertOptions{}, fmt.Errorf("failed to read cover image: %w", err)
		}
	}

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.Proxy = proxy

	return converter.ConvertOptions{
		Inputs:        args,
		OutputPath:    cfg.Output,
		Title:         cfg.Title,
		Author:        cfg.Author,
		Cover:         cover,
		CoverPage:     cfg.CoverPage,
		MissingImages: policy,
		WorkDir:       cfg.WorkDir,
		KeepImages:    cfg.KeepImages,
		Normalize:     cfg.Normalize,
		Fetch:         fetchOpts,
		Logger:        buildLogger(cmd.ErrOrStderr(), logLevel, logFormat),
	}, nil
}

func parseLogLevel(level string) (slog.Level, bool) {
	switch level {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// buildLogger creates a slog.Logger writing to w. Unknown levels fall back
// to info and unknown formats to text.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, _ := parseLogLevel(strings.ToLower(level))
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
