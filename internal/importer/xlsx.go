package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet columns. List cells separate items with listSeparator.
const (
	colKind        = "kind"
	colDifficulty  = "difficulty"
	colTopic       = "topic"
	colText        = "text"
	colExplanation = "explanation"
	colOptions     = "options"
	colAnswer      = "answer"
	colAccepted    = "accepted"
	colKeywords    = "keywords"

	listSeparator = "|"
)

var requiredColumns = []string{colKind, colDifficulty, colText}

// ReadXLSX reads questions from the first sheet of a workbook. The first row
// is a header naming the columns; blank rows are skipped.
func ReadXLSX(r io.Reader) ([]model.QuestionImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	out := make([]model.QuestionImport, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if get(colText) == "" && get(colKind) == "" {
			continue
		}

		out = append(out, model.QuestionImport{
			Kind:        model.QuestionKind(strings.ToLower(get(colKind))),
			Difficulty:  model.Tier(strings.ToLower(get(colDifficulty))),
			Topic:       get(colTopic),
			Text:        get(colText),
			Explanation: get(colExplanation),
			Options:     splitList(get(colOptions)),
			Answer:      get(colAnswer),
			Accepted:    splitList(get(colAccepted)),
			Keywords:    splitList(get(colKeywords)),
		})
	}
	return out, nil
}

func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, listSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
