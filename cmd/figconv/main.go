// Command figconv converts an annotated scientific PDF into a zip
// archive holding the LaTeX body, one SVG per figure, and the
// annotation document.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scipress/figconv"
	"github.com/scipress/figconv/tei"
)

var (
	pdfPath    string
	teiPath    string
	outputPath string

	workers    int
	previews   bool
	pdf2svgBin string
	teitolatex string
	logLevel   string
	logJSON    bool
	extensions []string
)

var rootCmd = &cobra.Command{
	Use:   "figconv",
	Short: "Convert annotated scientific PDFs to publication assets",
	Long: `figconv reads a PDF and its TEI-style annotation document, crops one
single-page PDF per annotated figure, renders each to SVG with pdf2svg,
converts the narrative to LaTeX with teitolatex, and packages the
results into a single zip archive.`,
	RunE: runConvert,
}

func init() {
	rootCmd.Flags().StringVarP(&pdfPath, "pdf", "p", "", "path to the PDF file (required)")
	rootCmd.Flags().StringVarP(&teiPath, "tei", "t", "", "path to the annotation XML file (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output archive path (default: <pdf stem>.zip)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 1, "concurrent SVG renders")
	rootCmd.Flags().BoolVar(&previews, "previews", false, "render a raster JPEG preview per figure")
	rootCmd.Flags().StringVar(&pdf2svgBin, "pdf2svg", "", "pdf2svg executable (default: from PATH)")
	rootCmd.Flags().StringVar(&teitolatex, "teitolatex", "", "teitolatex executable (default: from PATH)")
	rootCmd.Flags().StringSliceVar(&extensions, "extensions", nil, "archive member extensions (default: .tex,.svg,.xml)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of console output")
	rootCmd.MarkFlagRequired("pdf")
	rootCmd.MarkFlagRequired("tei")
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if logJSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if outputPath == "" {
		outputPath = strings.TrimSuffix(pdfPath, ".pdf") + ".zip"
	}

	conv := figconv.Open(pdfPath, teiPath).
		Logger(logger).
		Workers(workers)
	if previews {
		conv = conv.Previews()
	}
	// Tool paths fall back to the environment when not flagged.
	if pdf2svgBin == "" {
		pdf2svgBin = os.Getenv("FIGCONV_PDF2SVG")
	}
	if teitolatex == "" {
		teitolatex = os.Getenv("FIGCONV_TEITOLATEX")
	}
	if pdf2svgBin != "" {
		conv = conv.RendererBinary(pdf2svgBin)
	}
	if teitolatex != "" {
		conv = conv.ConverterBinary(teitolatex)
	}
	if extensions != nil {
		conv = conv.ArchiveExtensions(extensions...)
	}

	warnings, err := conv.WriteArchive(ctx, outputPath)
	if len(warnings) > 0 {
		logger.Warn().Msg(tei.FormatWarnings(warnings))
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), outputPath)
	return nil
}

func main() {
	// Tool paths and defaults may come from a local .env file.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
