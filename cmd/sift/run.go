package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/schema"
	"github.com/jackzampolin/sift/internal/server"
	"github.com/jackzampolin/sift/internal/session"
)

var (
	runPages    string
	runSchema   string
	runTemplate string
	runGenerate bool
	runOut      string
)

var (
	warnf    = color.New(color.FgYellow).FprintfFunc()
	successf = color.New(color.FgGreen).FprintfFunc()
)

var runCmd = &cobra.Command{
	Use:   "run <file.pdf>",
	Short: "Extract data from a PDF without starting the server",
	Long: `Welcome! Sift uses AI to help you extract structured data from documents.

  1. Upload a document   - PDF files, only the first 10 pages are used
  2. Select pages        - --pages picks which pages to process (default: all)
  3. Define your schema  - the default document schema, a --template, a
                           --schema file, or --generate to create one
                           from the selected pages
  4. Extract data        - the pages are processed according to the schema
  5. Download results    - the JSON is written to --out

The schema is YAML describing the fields to extract, their types and
descriptions. See "sift schema templates" for examples.

Examples:
  sift run invoice.pdf --template invoice
  sift run scan.pdf --pages 1,3-4 --generate --out scan.json
  sift run form.pdf --schema form.yaml --out -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stderr := cmd.ErrOrStderr()

		if runGenerate && (runSchema != "" || runTemplate != "") {
			return errors.New("--generate cannot be combined with --schema or --template")
		}
		if runSchema != "" && runTemplate != "" {
			return errors.New("--schema and --template are mutually exclusive")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		h, cm, err := loadEnv()
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(nil, logFile)
		if err != nil {
			return err
		}
		defer closeLog()

		srv, err := server.New(server.Config{ConfigManager: cm, Home: h, Logger: logger})
		if err != nil {
			return err
		}
		if !srv.HasProvider() {
			return fmt.Errorf("no LLM provider configured (set OPENROUTER_API_KEY or edit %s)", h.ConfigPath())
		}
		sess := srv.NewSession()

		update, err := withSpinner(ctx, stderr, "Rendering "+filepath.Base(args[0]), func(ctx context.Context) (session.Update, error) {
			return sess.Ingest(ctx, filepath.Base(args[0]), data)
		})
		if err != nil {
			return err
		}
		for _, w := range update.Warnings {
			warnf(stderr, "warning: %s\n", w)
		}

		if err := applySelection(sess, runPages); err != nil {
			return err
		}

		switch {
		case runTemplate != "":
			t, err := schema.GetTemplate(runTemplate)
			if err != nil {
				return err
			}
			sess.EditSchema(t.Text)
		case runSchema != "":
			text, err := readSchemaFile(runSchema, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sess.EditSchema(text)
		case runGenerate:
			if _, err := withSpinner(ctx, stderr, "Generating schema", sess.GenerateSchema); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Generated schema:\n%s\n", sess.SchemaText())
		}

		if _, err := withSpinner(ctx, stderr, "Extracting data", sess.ExtractData); err != nil {
			return err
		}
		export, err := sess.ExportData()
		if err != nil {
			return err
		}

		out := runOut
		if out == "" {
			out = h.ExportPath(sess.ID())
		}
		if out == "-" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(export))
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(out, export, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		successf(stderr, "Data extracted successfully.")
		fmt.Fprintf(stderr, " Written to %s\n", out)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runPages, "pages", "", "pages to process, 1-based (e.g. 1,3-5); default all")
	runCmd.Flags().StringVar(&runSchema, "schema", "", "schema file (- for stdin)")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "built-in schema template")
	runCmd.Flags().BoolVar(&runGenerate, "generate", false, "generate a schema from the selected pages")
	runCmd.Flags().StringVar(&runOut, "out", "", "output file (- for stdout; default <home>/exports/<session>/data.json)")

	rootCmd.AddCommand(runCmd)
}

// withSpinner runs fn while showing an indeterminate progress spinner.
func withSpinner(ctx context.Context, w io.Writer, desc string, fn func(context.Context) (session.Update, error)) (session.Update, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	update, err := fn(ctx)
	close(done)
	_ = bar.Finish()
	return update, err
}

// applySelection selects the pages named by list, or every page when list
// is empty.
func applySelection(sess *session.Session, list string) error {
	if strings.TrimSpace(list) == "" {
		_, err := sess.SelectAll(true)
		return err
	}
	indices, err := parsePages(list, sess.PageCount())
	if err != nil {
		return err
	}
	for _, i := range indices {
		if _, err := sess.ToggleSelection(i); err != nil {
			return err
		}
	}
	return nil
}

// parsePages turns a 1-based page list such as "1,3-5" into sorted,
// de-duplicated 0-based indices below count.
func parsePages(list string, count int) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		if start < 1 || end < start || end > count {
			return nil, fmt.Errorf("page range %q outside 1-%d", part, count)
		}
		for p := start; p <= end; p++ {
			seen[p-1] = true
		}
	}
	if len(seen) == 0 {
		return nil, errors.New("no pages given")
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

func readSchemaFile(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema: %w", err)
	}
	return string(data), nil
}
