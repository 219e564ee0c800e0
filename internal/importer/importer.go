// Package importer reads question bank import files. JSON files carry the
// whole bank; spreadsheets carry one question per row with the bank metadata
// supplied by the caller.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// Format identifies the import file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported import file %q: want .json or .xlsx", path)
}

// ReadJSON decodes a bank import document.
func ReadJSON(r io.Reader) (*model.BankImport, error) {
	var imp model.BankImport
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&imp); err != nil {
		return nil, fmt.Errorf("decode bank json: %w", err)
	}
	return &imp, nil
}

// LoadFile reads path in the given format. For spreadsheets, meta supplies
// the bank name, description and quota.
func LoadFile(path string, format Format, meta model.BankImport) (*model.BankImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		return ReadJSON(f)
	case FormatXLSX:
		questions, err := ReadXLSX(f)
		if err != nil {
			return nil, err
		}
		meta.Questions = questions
		return &meta, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Build turns an import document into a bank and its validated questions.
// Positions follow file order starting at 1. All invalid questions are
// reported together.
func Build(imp *model.BankImport) (*model.QuestionBank, []model.Question, error) {
	if strings.TrimSpace(imp.Name) == "" {
		return nil, nil, errors.New("bank name is required")
	}
	if imp.QuestionQuota < 0 {
		return nil, nil, errors.New("question quota must not be negative")
	}
	if len(imp.Questions) == 0 {
		return nil, nil, errors.New("bank has no questions")
	}

	bank := &model.QuestionBank{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(imp.Name),
		Description:   imp.Description,
		QuestionQuota: imp.QuestionQuota,
	}

	var errs []error
	questions := make([]model.Question, 0, len(imp.Questions))
	for i, qi := range imp.Questions {
		q := qi.ToQuestion(bank.ID, i+1)
		if err := q.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("question %d: %w", i+1, err))
			continue
		}
		questions = append(questions, q)
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return bank, questions, nil
}
