package file

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/database"
)

// utf8BOM makes spreadsheet apps detect the encoding of Uzbek text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var reportHeader = []string{"Sana", "Nomi", "Kategoriya", "Summa", "Kim"}

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ReportFilename is the name of the exported spreadsheet.
func (m *Manager) ReportFilename() string {
	return m.normalizeFilename(consts.ReportFilename)
}

// ExpensesCSV renders rows as a BOM-prefixed CSV report.
func (m *Manager) ExpensesCSV(rows []database.ExpenseView) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			m.sanitizeCell(r.Title),
			m.sanitizeCell(r.Category),
			strconv.FormatInt(int64(math.Round(r.Amount)), 10),
			m.sanitizeCell(r.CreatorName),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Manager) normalizeFilename(filename string) string {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		filename += ".csv"
	}
	return filename
}

// sanitizeCell stops spreadsheet apps from evaluating user text as a formula.
func (m *Manager) sanitizeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
