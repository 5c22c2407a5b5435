package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"Student ID", "Name", "Email", "Team",
	"Original Score", "Final Score", "Letter Grade",
	"Evaluations Received", "Improvement",
}

func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rep.Students {
		record := []string{
			row.StudentID,
			row.Name,
			row.Email,
			row.TeamName,
			formatScore(row.OriginalScore),
			formatScore(row.FinalScore),
			row.LetterGrade,
			strconv.Itoa(row.EvaluationsReceived),
			formatScore(row.Improvement),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", row.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Filename names the downloaded report after the course and generation date.
func Filename(rep *Report) string {
	number := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, rep.Course.Number)
	date := time.Unix(rep.GeneratedAt, 0).UTC().Format("2006-01-02")
	return fmt.Sprintf("peer-evaluation-report-%s-%s-%s.csv", number, rep.GradingSettings.Method, date)
}
