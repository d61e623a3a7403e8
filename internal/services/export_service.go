package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

type exportService struct {
	repo    repositories.Repository
	quizzes QuizService
	logger  *slog.Logger
}

func NewExportService(repo repositories.Repository, quizzes QuizService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:    repo,
		quizzes: quizzes,
		logger:  logger,
	}
}

var resultExportHeaders = []string{
	"Student ID", "Student Name", "Auto Score", "Manual Score", "Total Score",
	"Possible", "Percentage", "Grade", "Submit Trigger", "Submitted At", "Graded By",
}

func (s *exportService) ExportResultsXLSX(ctx context.Context, quizID, userID string, role models.UserRole) ([]byte, string, error) {
	quiz, results, err := s.resultsForExport(ctx, quizID, userID, role)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range resultExportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, result := range results {
		for colIndex, value := range resultToRow(result) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported results to Excel", "quiz_id", quizID, "rows", len(results))
	return buf.Bytes(), exportFilename(quiz, "xlsx"), nil
}

func (s *exportService) ExportResultsCSV(ctx context.Context, quizID, userID string, role models.UserRole) ([]byte, string, error) {
	quiz, results, err := s.resultsForExport(ctx, quizID, userID, role)
	if err != nil {
		return nil, "", err
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(resultExportHeaders); err != nil {
		return nil, "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write(resultToRow(result)); err != nil {
			return nil, "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", fmt.Errorf("CSV writer error: %w", err)
	}

	s.logger.Info("Exported results to CSV", "quiz_id", quizID, "rows", len(results))
	return []byte(buf.String()), exportFilename(quiz, "csv"), nil
}

func (s *exportService) resultsForExport(ctx context.Context, quizID, userID string, role models.UserRole) (*models.Quiz, []*models.Result, error) {
	if !role.CanGrade() {
		return nil, nil, NewPermissionError(userID, quizID, "results", "export", "requires a grading role")
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}

	// Exports are unpaginated: the whole roster in submission order.
	results, _, err := s.repo.Result().ListByQuiz(ctx, quizID, repositories.ResultFilters{
		SortBy:    "submitted_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list results: %w", err)
	}

	return quiz, results, nil
}

func resultToRow(result *models.Result) []string {
	gradedBy := ""
	if result.GradedBy != nil {
		gradedBy = *result.GradedBy
	}
	return []string{
		result.StudentID,
		result.StudentName,
		strconv.FormatFloat(result.AutoScore, 'f', 2, 64),
		strconv.FormatFloat(result.ManualScore, 'f', 2, 64),
		strconv.FormatFloat(result.TotalScore, 'f', 2, 64),
		strconv.Itoa(result.TotalPossibleScore),
		strconv.FormatFloat(result.Percentage, 'f', 2, 64),
		result.Grade,
		string(result.SubmitTrigger),
		result.SubmittedAt.Format(time.RFC3339),
		gradedBy,
	}
}

func exportFilename(quiz *models.Quiz, extension string) string {
	title := strings.ToLower(strings.ReplaceAll(quiz.Title, " ", "_"))
	var clean strings.Builder
	for _, r := range title {
		if r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			clean.WriteRune(r)
		}
	}
	name := clean.String()
	if name == "" {
		name = quiz.ID
	}
	return fmt.Sprintf("results_%s.%s", name, extension)
}
