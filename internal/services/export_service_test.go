package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newExportEnv(t *testing.T) (*attemptEnv, ExportService) {
	t.Helper()
	env := newAttemptEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return env, NewExportService(env.repo, env.quizzes, logger)
}

func TestExportResultsCSV(t *testing.T) {
	env, export := newExportEnv(t)
	ctx := context.Background()
	submitGradedAttempt(t, env)

	data, filename, err := export.ExportResultsCSV(ctx, "quiz-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "results_network_fundamentals.csv", filename)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, resultExportHeaders, rows[0])
	assert.Equal(t, "student-1", rows[1][0])
	assert.Equal(t, "10.00", rows[1][2]) // auto score
	assert.Equal(t, "35", rows[1][5])    // possible
	assert.Equal(t, "voluntary", rows[1][8])
}

func TestExportResultsXLSX(t *testing.T) {
	env, export := newExportEnv(t)
	ctx := context.Background()
	submitGradedAttempt(t, env)

	data, filename, err := export.ExportResultsXLSX(ctx, "quiz-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "results_network_fundamentals.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Student ID", rows[0][0])
	assert.Equal(t, "student-1", rows[1][0])
}

func TestExportRequiresGradingRole(t *testing.T) {
	_, export := newExportEnv(t)

	_, _, err := export.ExportResultsCSV(context.Background(), "quiz-1", "student-1", models.RoleStudent)
	var pe *PermissionError
	assert.ErrorAs(t, err, &pe)
}
