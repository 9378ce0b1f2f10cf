package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/star-vault/internal/config"
	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/pipeline"
	"github.com/kevinmichaelchen/star-vault/internal/version"
	"github.com/kevinmichaelchen/star-vault/internal/worker"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "star-vault",
		Short:         "GitHub stars → dated JSON and Markdown files, with READMEs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.star-vault/config.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output")

	root.AddCommand(downloadCmd(), downloadReadmeCmd(), configCmd(), versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func poolFlags(cmd *cobra.Command, opts *worker.Options) {
	cmd.Flags().IntVar(&opts.Workers, "threads", worker.DefaultWorkers, "Number of concurrent workers")
	cmd.Flags().IntVar(&opts.RetryCount, "retry_count", worker.DefaultRetryCount, "Attempts per repository before giving up")
	cmd.Flags().DurationVar(&opts.RetryDelay, "retry_delay", worker.DefaultRetryDelay, "Pause between attempts")
}

func downloadCmd() *cobra.Command {
	var (
		token, outputDir, jsonDir, markdownDir string
		summarize                              bool
		opts                                   pipeline.DownloadOptions
	)

	cmd := &cobra.Command{
		Use:   "download <username>",
		Short: "Download new stars of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Override(token, outputDir, jsonDir, markdownDir)
			if cfg.GitHubToken == "" {
				logger.Warn("No GitHub token set; unauthenticated requests are limited to 60 per hour")
			}

			runner, err := pipeline.New(cmd.Context(), cfg, summarize)
			if err != nil {
				return err
			}

			opts.User = args[0]
			_, err = runner.Download(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "GitHub token (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output_dir", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&jsonDir, "json_dir", "", "JSON directory (default <output_dir>/json)")
	cmd.Flags().StringVar(&markdownDir, "markdown_dir", "", "Markdown directory (default <output_dir>/markdown)")
	cmd.Flags().BoolVar(&opts.SkipReadme, "skip_readme", false, "Do not fetch READMEs")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Walk every page, ignoring the last-starred watermark")
	cmd.Flags().BoolVar(&opts.AdvanceOnFailure, "advance_on_failure", false, "Move the watermark even if some repositories failed")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "Add an AI summary to new documents (needs LLM_API_KEY)")
	poolFlags(cmd, &opts.Pool)
	return cmd
}

func downloadReadmeCmd() *cobra.Command {
	var opts pipeline.ReadmeOptions

	cmd := &cobra.Command{
		Use:   "download_readme",
		Short: "Fetch READMEs for stars already saved as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			runner, err := pipeline.New(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			_, err = runner.DownloadReadmes(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Refetch READMEs that were already downloaded")
	poolFlags(cmd, &opts.Pool)
	return cmd
}

func configCmd() *cobra.Command {
	var (
		token, outputDir, jsonDir, markdownDir string
		show                                   bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			changes := map[string]string{}
			for key, val := range map[string]string{
				config.KeyGitHubToken: token,
				config.KeyOutputDir:   outputDir,
				config.KeyJSONDir:     jsonDir,
				config.KeyMarkdownDir: markdownDir,
			} {
				if val != "" {
					changes[key] = val
				}
			}

			if len(changes) > 0 {
				if err := config.Update(cfg.Path, changes); err != nil {
					return err
				}
				fmt.Printf("Updated %s\n", cfg.Path)
				if cfg, err = config.Load(cfg.Path); err != nil {
					return err
				}
			}

			if show || len(changes) == 0 {
				data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "GitHub token")
	cmd.Flags().StringVar(&outputDir, "output_dir", "", "Output directory")
	cmd.Flags().StringVar(&jsonDir, "json_dir", "", "JSON directory")
	cmd.Flags().StringVar(&markdownDir, "markdown_dir", "", "Markdown directory")
	cmd.Flags().BoolVar(&show, "show", false, "Print the effective config")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}
