package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newOverlayCmd() *cobra.Command {
	var (
		concurrency int
		saveDir     string
	)

	cmd := &cobra.Command{
		Use:   "overlay <page-url>...",
		Short: "Fetch host pages with community ratings applied",
		Long: `Fetch one or more host pages through the server's overlay proxy.

Pages are fetched concurrently. With --save-dir the rewritten HTML of each
page is written to a file named after the page path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			if saveDir != "" {
				if err := os.MkdirAll(saveDir, 0o755); err != nil {
					return fmt.Errorf("failed to create save dir: %w", err)
				}
			}

			results := make(OverlayList, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for i, pageURL := range args {
				g.Go(func() error {
					if cfg.Verbose {
						fmt.Fprintf(cmd.ErrOrStderr(), "fetching %s\n", pageURL)
					}
					res, err := client.Overlay(ctx, pageURL)
					if err != nil {
						results[i] = OverlayResult{URL: pageURL, Error: err.Error()}
						return nil
					}
					if saveDir != "" {
						path := filepath.Join(saveDir, pageFileName(pageURL, i))
						if err := os.WriteFile(path, res.html, 0o644); err != nil {
							return fmt.Errorf("failed to save %s: %w", pageURL, err)
						}
						res.SavedTo = path
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(results)

			if failed := results.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d pages failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum pages fetched at once")
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Directory to write rewritten pages to")

	return cmd
}

// pageFileName derives a file name from a page URL
func pageFileName(pageURL string, index int) string {
	name := ""
	if u, err := url.Parse(pageURL); err == nil {
		name = strings.Trim(u.Path, "/")
	}
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	if name == "" {
		name = "index"
	}
	return fmt.Sprintf("%02d_%s.html", index, name)
}
