package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"proctored-quiz-service/internal/domain"
)

// ResultHeader is the column layout of exported results.
var ResultHeader = []string{"username", "usn", "section", "quiz_id", "score", "total", "elapsed_seconds", "submitted_at"}

// WriteResultsCSV writes results as CSV with a header row.
func WriteResultsCSV(w io.Writer, results []domain.QuizResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		record := []string{
			r.Username,
			r.USN,
			r.Section,
			r.QuizID,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.Total),
			strconv.FormatInt(r.ElapsedSeconds(), 10),
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write result for %s: %w", r.Username, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename names a download for a section; the global sink is "results.csv".
func Filename(section string) string {
	if section == "" {
		return "results.csv"
	}
	return "results_" + section + ".csv"
}
