// Package export writes metrics tables to Excel workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/model"
)

// SheetName is the worksheet holding the table.
const SheetName = "details"

// DefaultName is used when the requested name sanitizes to nothing.
const DefaultName = "financials"

const ext = ".xlsx"

// ErrInvalidName is returned for download names that could escape the
// export directory.
var ErrInvalidName = eris.New("export: invalid file name")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Sanitize turns a user-supplied name into a safe base name without the
// extension.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if strings.HasSuffix(strings.ToLower(name), ext) {
		name = name[:len(name)-len(ext)]
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" {
		return DefaultName
	}
	return name
}

// Writer saves workbooks into one directory.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter returns a Writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the export directory.
func (w *Writer) Dir() string { return w.dir }

// Write saves t under a name derived from name and returns the final file
// name. Existing files are never overwritten: a numeric suffix is added.
func (w *Writer) Write(t model.Table, name string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "export: create dir")
	}

	tmp := filepath.Join(w.dir, "report-"+uuid.New().String()+ext)
	if err := build(t).Save(tmp); err != nil {
		return "", eris.Wrap(err, "export: save workbook")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	final := w.uniqueName(Sanitize(name))
	if err := os.Rename(tmp, filepath.Join(w.dir, final)); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return "", eris.Wrap(err, "export: rename workbook")
	}

	zap.L().Info("export: workbook written",
		zap.String("file", final),
		zap.Int("rows", t.Len()),
	)
	return final, nil
}

// Path resolves a file name previously returned by Write. Names containing
// path elements are rejected.
func (w *Writer) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, ext) {
		return "", ErrInvalidName
	}
	p := filepath.Join(w.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", eris.Wrapf(err, "export: stat %s", name)
	}
	return p, nil
}

func (w *Writer) uniqueName(base string) string {
	candidate := base + ext
	for i := 1; exists(filepath.Join(w.dir, candidate)); i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func build(t model.Table) *xlsx.File {
	cols := t.Columns
	if len(cols) == 0 {
		cols = model.DisplayColumns
	}

	f := xlsx.NewFile()
	sheet, _ := f.AddSheet(SheetName) // only fails on duplicate or over-long names

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c.Title)
	}

	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			switch c.Key {
			case model.ColCompany:
				cell.SetString(r.Company)
			case model.ColYear:
				cell.SetInt(r.Year)
			case model.ColQuarter:
				cell.SetInt(r.Quarter)
			default:
				if v := r.Cell(c.Key); v.Valid {
					cell.SetFloat(v.Float)
				}
			}
		}
	}
	return f
}
