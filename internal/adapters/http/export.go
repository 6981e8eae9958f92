package httpadapter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

const exportSheet = "Interviews"

var exportHeader = []any{
	"Session ID", "Type", "Status", "Started", "Duration (min)",
	"Questions", "Completed", "Overall score", "Total points", "Bonus points",
}

func (rt *Router) exportInterviews(w http.ResponseWriter, r *http.Request) {
	items, err := rt.deps.Interviews.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := buildInterviewWorkbook(items)
	if err != nil {
		rt.logger.Error("export_build_failed", zapRequestID(r), zap.Error(err))
		writeError(w, r, err)
		return
	}
	defer book.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="interviews.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if err := book.Write(w); err != nil {
		rt.logger.Warn("export_write_failed", zapRequestID(r), zap.Error(err))
	}
}

// buildInterviewWorkbook renders one row per session summary.
func buildInterviewWorkbook(items []domain.SessionSummary) (*excelize.File, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := book.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, s := range items {
		started := ""
		if s.StartTime != nil {
			started = s.StartTime.UTC().Format(time.RFC3339)
		}
		duration := ""
		if s.Duration != nil {
			duration = fmt.Sprint(*s.Duration)
		}
		row := []any{
			s.ID, string(s.InterviewType), string(s.Status), started, duration,
			s.TotalQuestions, s.CompletedQuestions, s.OverallScore, s.TotalPoints, s.BonusPoints,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = book.Close()
			return nil, err
		}
		if err := book.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = book.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return book, nil
}
