package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/compile"
	"github.com/datasmith/datasmith/internal/export"
	"github.com/datasmith/datasmith/internal/schema"
	"github.com/datasmith/datasmith/internal/session"
)

var (
	backendURL string
	provider   string
	schemaFile string
	scriptFile string
	textPrompt string
	rules      string
	total      int
	correct    int
	wrong      int
	outputFile string
	inputFile  string
	format     string
	catalogSrc string
)

var rootCmd = &cobra.Command{
	Use:   "datasmith",
	Short: "Generate realistic test data from schemas, scripts, or plain text",
	Long: `Datasmith compiles field schemas, Selenium scripts, or natural-language
descriptions into generation requests and runs them against a data
generation backend.`,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate records for a single table schema",
	RunE:  runGenerate,
}

var generateDBCmd = &cobra.Command{
	Use:   "generate-db",
	Short: "Generate a multi-table database from a database schema",
	RunE:  runGenerateDB,
}

var generateTextCmd = &cobra.Command{
	Use:   "generate-text",
	Short: "Generate a database from a natural-language description",
	RunE:  runGenerateText,
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a Selenium script into a field schema without generating",
	RunE:  runParse,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a saved generation result to CSV, XLSX, or SQLite",
	RunE:  runExport,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the rich types available for fields",
	RunE:  runTypes,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "http://localhost:8000", "Generation backend base URL")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", session.DefaultProvider, "Model provider (ollama or groq)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	generateCmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "JSON file with the field list (required)")
	generateCmd.Flags().IntVarP(&total, "total", "n", schema.DefaultTotal, "Total records to generate")
	generateCmd.Flags().IntVar(&correct, "correct", schema.DefaultCorrect, "Records that satisfy all rules")
	generateCmd.Flags().IntVar(&wrong, "wrong", schema.DefaultWrong, "Records that deliberately violate rules")
	generateCmd.Flags().StringVar(&rules, "rules", "", "Additional free-form generation rules")
	generateCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or csv")
	generateCmd.MarkFlagRequired("schema")

	generateDBCmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "JSON file with the database schema (required)")
	generateDBCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, xlsx, or sqlite")
	generateDBCmd.MarkFlagRequired("schema")

	generateTextCmd.Flags().StringVarP(&textPrompt, "text", "t", "", "Natural-language description (required)")
	generateTextCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, xlsx, or sqlite")
	generateTextCmd.MarkFlagRequired("text")

	parseCmd.Flags().StringVar(&scriptFile, "script", "", "Selenium script file (required)")
	parseCmd.MarkFlagRequired("script")

	exportCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Saved result JSON file (required)")
	exportCmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, xlsx, or sqlite")
	exportCmd.MarkFlagRequired("input")

	typesCmd.Flags().StringVar(&catalogSrc, "catalog", "", "CUE catalog file (default: built-in catalog)")

	rootCmd.AddCommand(generateCmd, generateDBCmd, generateTextCmd, parseCmd, exportCmd, typesCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var fields []schema.Field
	if err := readJSONFile(schemaFile, &fields); err != nil {
		return err
	}
	if len(schema.NamedFields(fields)) == 0 {
		return fmt.Errorf("schema %s has no named fields", schemaFile)
	}

	client := backend.New(backendURL)
	_, req := compile.Single(fields, total, correct, wrong, rules, provider)
	res, err := client.GenerateSingle(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	switch format {
	case "json":
		return writeOutput(func(f *os.File) error { return writeJSON(f, res) })
	case "csv":
		cols := export.Columns(res.Data)
		return writeOutput(func(f *os.File) error { return export.WriteCSV(f, cols, res.Data) })
	default:
		return fmt.Errorf("invalid format: %s (must be 'json' or 'csv')", format)
	}
}

func runGenerateDB(cmd *cobra.Command, args []string) error {
	var db schema.Database
	if err := readJSONFile(schemaFile, &db); err != nil {
		return err
	}

	_, req := compile.Database(db, provider)
	if len(req.DBSchema.Tables) == 0 {
		return fmt.Errorf("schema %s has no named tables", schemaFile)
	}
	for _, t := range req.DBSchema.Tables {
		if len(t.Fields) == 0 {
			return fmt.Errorf("table %q in %s has no named fields", t.TableName, schemaFile)
		}
	}

	client := backend.New(backendURL)
	res, err := client.GenerateDatabase(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return writeDatabase(cmd.Context(), res)
}

func runGenerateText(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(textPrompt) == "" {
		return fmt.Errorf("--text must not be blank")
	}

	client := backend.New(backendURL)
	_, req := compile.Text(textPrompt, provider)
	res, err := client.GenerateFromText(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return writeDatabase(cmd.Context(), res)
}

func runParse(cmd *cobra.Command, args []string) error {
	script, err := os.ReadFile(scriptFile)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	client := backend.New(backendURL)
	_, req := compile.ParseOnly(string(script), provider)
	res, err := client.ParseScript(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	if len(res.ParsedSchema) == 0 {
		if res.ParseError != "" {
			return fmt.Errorf("parser returned no schema: %s", res.ParseError)
		}
		return fmt.Errorf("parser returned no schema")
	}

	fields := schema.Normalize(res.ParsedSchema)
	return writeOutput(func(f *os.File) error { return writeJSON(f, fields) })
}

// runExport accepts either a single-table result (count/data) or a
// database result (tables/generation_order), telling them apart by
// which keys the file carries.
func runExport(cmd *cobra.Command, args []string) error {
	var probe struct {
		Data            []export.Record            `json:"data"`
		Tables          map[string][]export.Record `json:"tables"`
		GenerationOrder []string                   `json:"generation_order"`
	}
	if err := readJSONFile(inputFile, &probe); err != nil {
		return err
	}

	if len(probe.Tables) > 0 {
		res := &backend.DatabaseResult{Tables: probe.Tables, GenerationOrder: probe.GenerationOrder}
		if len(res.GenerationOrder) == 0 {
			for name := range res.Tables {
				res.GenerationOrder = append(res.GenerationOrder, name)
			}
			sort.Strings(res.GenerationOrder)
		}
		if format == "csv" {
			return fmt.Errorf("csv export is single-table; use xlsx or sqlite for a database result")
		}
		return writeDatabase(cmd.Context(), res)
	}

	if len(probe.Data) == 0 {
		return fmt.Errorf("%s has no records to export", inputFile)
	}
	switch format {
	case "csv":
		cols := export.Columns(probe.Data)
		return writeOutput(func(f *os.File) error { return export.WriteCSV(f, cols, probe.Data) })
	case "xlsx":
		set := export.TableSet{Order: []string{"data"}, Tables: map[string][]export.Record{"data": probe.Data}}
		return writeOutput(func(f *os.File) error { return export.WriteWorkbook(f, set) })
	case "sqlite":
		if outputFile == "" {
			return fmt.Errorf("--output is required for sqlite format")
		}
		set := export.TableSet{Order: []string{"data"}, Tables: map[string][]export.Record{"data": probe.Data}}
		return export.WriteSQLite(cmd.Context(), outputFile, set)
	default:
		return fmt.Errorf("invalid format: %s (must be 'csv', 'xlsx', or 'sqlite')", format)
	}
}

func runTypes(cmd *cobra.Command, args []string) error {
	cat := catalog.Default()
	if catalogSrc != "" {
		loaded, err := catalog.LoadFile(catalogSrc)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		cat = loaded
	}
	for _, e := range cat.Entries() {
		fmt.Printf("%-16s %s\n", e.ID, e.Description)
	}
	return nil
}

// writeDatabase renders a multi-table result in the requested format.
func writeDatabase(ctx context.Context, res *backend.DatabaseResult) error {
	set := export.TableSet{Order: res.GenerationOrder, Tables: res.Tables}

	switch format {
	case "json":
		return writeOutput(func(f *os.File) error { return writeJSON(f, res) })
	case "xlsx":
		if outputFile == "" {
			return fmt.Errorf("--output is required for xlsx format")
		}
		return writeOutput(func(f *os.File) error { return export.WriteWorkbook(f, set) })
	case "sqlite":
		if outputFile == "" {
			return fmt.Errorf("--output is required for sqlite format")
		}
		return export.WriteSQLite(ctx, outputFile, set)
	default:
		return fmt.Errorf("invalid format: %s (must be 'json', 'xlsx', or 'sqlite')", format)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(f *os.File, v any) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(write func(*os.File) error) error {
	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		out = f
	}
	return write(out)
}

// applyEnv rebinds flag defaults from the environment. Parsing happens
// after, so flags passed on the command line still win.
func applyEnv() {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		backendURL = v
	}
	if v := os.Getenv("DEFAULT_PROVIDER"); v != "" {
		provider = v
	}
}

func main() {
	_ = godotenv.Load()
	applyEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
