package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chriscorrea/tickersift/internal/engine"
	"github.com/chriscorrea/tickersift/internal/progress"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// output styles for the default (styled) renderer
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// config holds all CLI options resolved from flags and arguments.
type config struct {
	Sources []string // snapshot CSV paths, URLs, or "-"
	Query   string
	Limit   int // max rows printed (0 = all)
	JSON    bool
	Plain   bool
	Watch   bool
	Quiet   bool
	Debug   bool
}

// buildConfig constructs a config from command flags and arguments
func buildConfig(cmd *cobra.Command, args []string) config {
	sources, _ := cmd.Flags().GetStringSlice("data")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	plainFlag, _ := cmd.Flags().GetBool("plain")
	watch, _ := cmd.Flags().GetBool("watch")
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")

	return config{
		Sources: sources,
		Query:   strings.Join(args, " "),
		Limit:   limit,
		JSON:    jsonFlag,
		Plain:   plainFlag,
		Watch:   watch,
		Quiet:   quiet,
		Debug:   debug,
	}
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

var rootCmd = &cobra.Command{
	Use:   "tickersift [query...]",
	Short: "Search and rank financial entities with plain-language filters",
	Long: `Tickersift builds an in-memory TF-IDF index over tabular stock snapshots
and answers constrained natural-language queries with ranked, filtered results.

Examples:
  tickersift -d nasdaq.csv -d nyse.csv "gpu chip makers"
  tickersift -d nasdaq.csv "biotech with low price and high earning growth"
  tickersift -d nasdaq.csv --watch "companies in california led by elon"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig(cmd, args)
		if len(cfg.Sources) == 0 {
			return fmt.Errorf("no snapshot sources: provide at least one --data source")
		}

		setupLogger(cfg.Debug)

		// context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		eng := engine.New()
		if err := buildEngine(ctx, eng, cfg); err != nil {
			return err
		}

		if err := runQuery(eng, cfg); err != nil {
			return err
		}

		if cfg.Watch {
			return watchSources(ctx, eng, cfg)
		}
		return nil
	},
}

// buildEngine loads the snapshot sources and builds the index, with a
// progress indicator on stderr for the blocking phases.
func buildEngine(ctx context.Context, eng *engine.Engine, cfg config) error {
	var ind *progress.Indicator
	if !cfg.Quiet {
		ind = progress.New(os.Stderr, "loading snapshots...")
		ind.Start()
		defer ind.Done()
	}

	if err := eng.Load(ctx, cfg.Sources...); err != nil {
		return fmt.Errorf("loading snapshots: %w", err)
	}

	if ind != nil {
		ind.Update("building index...")
	}
	if err := eng.BuildIndex(); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	return nil
}

// runQuery executes one query and renders the result set.
func runQuery(eng *engine.Engine, cfg config) error {
	results, err := eng.Query(cfg.Query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if cfg.Limit > 0 && len(results) > cfg.Limit {
		results = results[:cfg.Limit]
	}

	switch {
	case cfg.JSON:
		return renderJSON(results)
	case cfg.Plain:
		renderPlain(results)
	default:
		renderStyled(results, cfg.Quiet)
	}
	return nil
}

// renderJSON writes the result set as indented JSON on stdout.
func renderJSON(results []engine.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// renderPlain writes one undecorated line per result.
func renderPlain(results []engine.Result) {
	for _, r := range results {
		fields := make([]string, 0, len(r.Fields))
		for _, f := range r.Fields {
			fields = append(fields, f.Keyword+"="+f.Value)
		}
		line := fmt.Sprintf("%s\t%s\t%s", r.Symbol, r.Name, r.Score)
		if len(fields) > 0 {
			line += "\t" + strings.Join(fields, "\t")
		}
		fmt.Println(line)
	}
}

// renderStyled writes the result set as a bordered table. Every result in a
// set carries the same condition keywords, so the first result defines the
// field columns.
func renderStyled(results []engine.Result, quiet bool) {
	if len(results) == 0 {
		if !quiet {
			fmt.Println(noteStyle.Render("no matches"))
		}
		return
	}

	headers := []string{"SYMBOL", "NAME"}
	for _, f := range results[0].Fields {
		headers = append(headers, strings.ToUpper(f.Keyword))
	}
	headers = append(headers, "TF-IDF")

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{r.Symbol, r.Name}
		for _, f := range r.Fields {
			row = append(row, f.Value)
		}
		row = append(row, r.Score)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Println(t)
}

// watchSources re-runs the query whenever a local snapshot source changes.
// Each reload builds a complete new index and swaps it in atomically, so a
// rebuild never disturbs the query in flight.
func watchSources(ctx context.Context, eng *engine.Engine, cfg config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// watch parent directories and filter by file name, so editors that
	// replace files (write + rename) are still observed
	watched := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, source := range cfg.Sources {
		if source == "-" || strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			continue
		}
		abs, err := filepath.Abs(source)
		if err != nil {
			continue
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	if len(watched) == 0 {
		return fmt.Errorf("watch mode requires at least one local snapshot file")
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %q: %w", dir, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(os.Stderr, noteStyle.Render("watching snapshots; ctrl-c to stop"))
	}

	// debounce bursts of events from a single save
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, tracked := watched[abs]; !tracked {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(300 * time.Millisecond)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Debug("watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := eng.Reload(ctx, cfg.Sources...); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: reload failed: %v\n", err)
				continue
			}
			if err := runQuery(eng, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
}

func init() {
	rootCmd.Flags().StringSliceP("data", "d", nil, "Snapshot CSV source (file path, URL, or '-'); repeatable")

	rootCmd.Flags().IntP("limit", "n", 15, "Maximum number of results to print (0 = all)")

	// output format flags are mutually exclusive
	rootCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.Flags().Bool("plain", false, "Output results as undecorated text")
	rootCmd.MarkFlagsMutuallyExclusive("json", "plain")

	rootCmd.Flags().Bool("watch", false, "Watch snapshot files and re-run the query on change")

	// other flags
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress progress and notes")
	rootCmd.Flags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.Flags().MarkHidden("debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
