package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chrissnell/massindex/internal/temporal"
)

// DirWriter writes reports into a directory tree with one subdirectory per
// temporality
type DirWriter struct {
	root      string
	formatter *Formatter
	logger    *zap.SugaredLogger
}

// NewDirWriter creates a DirWriter rooted at root. A nil logger disables logging.
func NewDirWriter(root string, formatter *Formatter, logger *zap.SugaredLogger) *DirWriter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DirWriter{
		root:      root,
		formatter: formatter,
		logger:    logger,
	}
}

// WriteSeries writes one report per row of the series plus a batch summary
// and returns the paths written
func (d *DirWriter) WriteSeries(series *temporal.Series) ([]string, error) {
	dir := filepath.Join(d.root, series.Temporality.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating report directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(series.Rows)+1)
	for _, row := range series.Rows {
		path := filepath.Join(dir, FileName(row.Label)+".txt")
		if err := os.WriteFile(path, []byte(d.formatter.FormatRow(row)), 0o644); err != nil {
			return paths, fmt.Errorf("error writing report %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	summary := filepath.Join(dir, "summary.txt")
	if err := os.WriteFile(summary, []byte(d.formatter.Summary(series)), 0o644); err != nil {
		return paths, fmt.Errorf("error writing summary %s: %w", summary, err)
	}
	paths = append(paths, summary)

	d.logger.Infow("reports written", "temporality", series.Temporality.String(), "dir", dir, "files", len(paths))
	return paths, nil
}

// WriteTable writes the consolidated table as <name> plus the extensions of
// the chosen format and compression
func (d *DirWriter) WriteTable(name string, rows []TableRow, opts TableOptions) (string, error) {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("error creating report directory %s: %w", d.root, err)
	}

	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	path := filepath.Join(d.root, name+opts.Format.Extension()+opts.Compression.Extension())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating table %s: %w", path, err)
	}
	if err := WriteTable(f, rows, opts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing table %s: %w", path, err)
	}

	d.logger.Infow("table written", "path", path, "rows", len(rows))
	return path, nil
}

// WriteAnnotations writes the annotated dataset as <name>.csv plus the
// compression extension
func (d *DirWriter) WriteAnnotations(name string, annotations []temporal.Annotation, temporalities []temporal.Temporality, opts TableOptions) (string, error) {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("error creating report directory %s: %w", d.root, err)
	}

	path := filepath.Join(d.root, name+FormatCSV.Extension()+opts.Compression.Extension())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating annotations %s: %w", path, err)
	}
	if err := WriteAnnotations(f, annotations, temporalities, opts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing annotations %s: %w", path, err)
	}

	d.logger.Infow("annotations written", "path", path, "records", len(annotations))
	return path, nil
}

// WriteComparison writes a method comparison report named after the clock
func (d *DirWriter) WriteComparison(title string, comparisons []Comparison) (string, error) {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("error creating report directory %s: %w", d.root, err)
	}

	name := fmt.Sprintf("comparison_%s.txt", d.formatter.now().Format("20060102_150405"))
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, []byte(d.formatter.FormatComparison(title, comparisons)), 0o644); err != nil {
		return "", fmt.Errorf("error writing comparison %s: %w", path, err)
	}

	d.logger.Infow("comparison written", "path", path, "methods", len(comparisons))
	return path, nil
}

var fileNameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-", " ", "_",
)

// FileName turns a window label into a portable file name
func FileName(label string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(label))
}
