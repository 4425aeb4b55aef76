package memory

import (
	"context"
	"fmt"
	"sync"

	"famreport/internal/export"
	ports "famreport/internal/sheets"
)

// Writer keeps written statements in memory. It stands in for Google Sheets
// in tests and when no spreadsheet is configured.
type Writer struct {
	mu     sync.Mutex
	sheets map[string][][]any
	writes int
}

var _ ports.StatementWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{sheets: make(map[string][][]any)}
}

func (w *Writer) WriteStatement(_ context.Context, sheet string, st export.Statement) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[sheet] = ports.Rows(st)
	w.writes++
	return fmt.Sprintf("mem:%s:%d", sheet, w.writes), nil
}

// Sheet returns the rows last written to sheet.
func (w *Writer) Sheet(sheet string) ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[sheet]
	return rows, ok
}

func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
