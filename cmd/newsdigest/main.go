package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"newsdigest/internal/config"
	"newsdigest/internal/database"
	"newsdigest/internal/llm"
	"newsdigest/internal/pipeline"
	"newsdigest/internal/render"
	"newsdigest/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	// Optional .env for API keys; ignore if absent.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsdigest",
	Short:   "Weekly AI news digests",
	Long:    "newsdigest collects AI news from feeds and scraped listings, classifies it, and renders weekly digests with an optional blog post.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(blogCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsdigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, taxonomy, API keys, and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and source status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Items:")
		fmt.Printf("  Total collected: %d\n", stats.TotalItems)
		fmt.Printf("  Processed: %d\n", stats.ProcessedItems)
		fmt.Printf("  Failed: %d\n", stats.FailedItems)
		fmt.Println("\nSources:")
		fmt.Printf("  Recorded: %d\n", stats.Feeds)
		fmt.Printf("  Currently failing: %d\n", stats.FailingFeeds)

		feeds, err := db.ListFeeds()
		if err != nil {
			return err
		}
		for _, feed := range feeds {
			if feed.LastError != nil {
				fmt.Printf("  %s: %s\n", feed.Name, *feed.LastError)
			}
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> dedup -> extract -> classify -> digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider, err := resolveProvider()
		if err != nil {
			return err
		}

		pipe := pipeline.New(cfg, db, provider)
		result, err := pipe.Run(context.Background())
		if err != nil {
			return err
		}

		fmt.Println("Pipeline complete:")
		fmt.Printf("  Sources: %d (%d failed)\n", result.Sources, result.SourceFailures)
		fmt.Printf("  Entries fetched: %d\n", result.Entries)
		fmt.Printf("  Already seen: %d\n", result.SkippedDuplicates)
		fmt.Printf("  Processed: %d\n", result.Processed)
		fmt.Printf("  Failed: %d\n", result.Failed)
		fmt.Printf("  Digest: %s\n", result.DigestPath)
		if result.BlogPath != "" {
			fmt.Printf("  Blog: %s\n", result.BlogPath)
		}
		return nil
	},
}

var weekFile string

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Generate the weekly blog post from an existing digest file",
	RunE: func(cmd *cobra.Command, args []string) error {
		weekMD, err := os.ReadFile(weekFile)
		if err != nil {
			return fmt.Errorf("reading digest: %w", err)
		}

		provider, err := llm.CreateProvider(cfg.Summarizer)
		if err != nil {
			return err
		}

		now := time.Now().In(cfg.Location())
		md, err := render.GenerateBlog(context.Background(), provider, string(weekMD), cfg)
		if err != nil {
			return err
		}

		blogDir := cfg.Output.BlogPath
		weeklyTitle := render.ExtractTitle(string(weekMD), filepath.Base(weekFile))
		md = render.NormalizeAuthor(md)
		title := render.ExtractTitle(md, weeklyTitle)
		md = render.EnsureFrontmatter(md, title, now.Format("2006-01-02"))
		relLink := strings.TrimSuffix(render.WeeklyLink(weekFile, blogDir), ".md")
		md = render.AppendReferenceSection(md, weeklyTitle, relLink)

		path := filepath.Join(blogDir, render.BlogFilename(cfg, now))
		if err := render.WriteAtomic(path, md); err != nil {
			return err
		}
		fmt.Printf("Blog written: %s\n", path)
		return nil
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the digest archive and source health dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return server.Serve(db, cfg.Output.Path, port)
	},
}

func init() {
	blogCmd.Flags().StringVar(&weekFile, "week-file", "", "Path to the weekly digest Markdown file")
	blogCmd.MarkFlagRequired("week-file")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
}

// resolveProvider builds the LLM provider unless the configuration can run
// without one.
func resolveProvider() (llm.Provider, error) {
	if cfg.Classification.Mode == "keyword_only" && !cfg.Output.WeeklyBlog() {
		return nil, nil
	}
	return llm.CreateProvider(cfg.Summarizer)
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.Storage.DBPath)
}
