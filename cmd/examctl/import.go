package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/importer"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Import a question bank from a JSON or XLSX file",
		Long: `Imports a question bank into PostgreSQL.

JSON files hold the whole bank: {"name", "description", "question_quota", "questions": [...]}.
XLSX files hold one question per row of the first sheet with the header
kind, difficulty, topic, text, explanation, options, answer, accepted, keywords;
list cells separate items with "|". Bank metadata comes from the flags.`,
		RunE: runImport,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Path to the import file (required)")
	f.String("format", "", "File format: json or xlsx (default: from extension)")
	f.String("name", "", "Bank name (XLSX, or override for JSON)")
	f.String("description", "", "Bank description (XLSX)")
	f.Int("quota", 0, "Questions per session (0 = server default)")
	f.Bool("dry-run", false, "Validate the file without writing to the database")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, log := setup()
	f := cmd.Flags()
	path, _ := f.GetString("file")
	formatFlag, _ := f.GetString("format")
	name, _ := f.GetString("name")
	description, _ := f.GetString("description")
	quota, _ := f.GetInt("quota")
	dryRun, _ := f.GetBool("dry-run")

	format := importer.Format(formatFlag)
	if format == "" {
		detected, err := importer.DetectFormat(path)
		if err != nil {
			return err
		}
		format = detected
	}

	imp, err := importer.LoadFile(path, format, model.BankImport{
		Name:          name,
		Description:   description,
		QuestionQuota: quota,
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if name != "" {
		imp.Name = name
	}
	if f.Changed("quota") {
		imp.QuestionQuota = quota
	}

	bank, questions, err := importer.Build(imp)
	if err != nil {
		return fmt.Errorf("invalid bank: %w", err)
	}

	byTier := map[model.Tier]int{}
	for _, q := range questions {
		byTier[q.Tier]++
	}
	log.Info().
		Str("name", bank.Name).
		Int("questions", len(questions)).
		Int("easy", byTier[model.TierEasy]).
		Int("medium", byTier[model.TierMedium]).
		Int("hard", byTier[model.TierHard]).
		Msg("Bank validated")

	if dryRun {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewQuestionBankRepository(pool).CreateBank(ctx, bank, questions); err != nil {
		return fmt.Errorf("store bank: %w", err)
	}

	log.Info().Str("bank_id", bank.ID.String()).Msg("Bank imported")
	return json.NewEncoder(os.Stdout).Encode(map[string]any{
		"bank_id":   bank.ID,
		"name":      bank.Name,
		"questions": len(questions),
	})
}
