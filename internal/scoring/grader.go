package scoring

import (
	"math"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const NoEvaluations = "No evaluations"

// Score is the aggregate of every rating a student received.
type Score struct {
	Average    float64 `json:"average"`
	Percentage float64 `json:"percentage"`
	Ratings    int     `json:"ratings"`
}

func (s Score) HasRatings() bool {
	return s.Ratings > 0
}

// MeanScore averages every individual rating value across all evaluations, each
// normalized to the common 1-5 scale. Zero values are treated as absent.
func MeanScore(ratings []models.Ratings) Score {
	var sum float64
	var count int
	for _, r := range ratings {
		for _, c := range models.Rubric.Criteria {
			raw := r.Get(c.ID)
			if raw <= 0 {
				continue
			}
			sum += float64(raw) * models.CommonScale / float64(c.MaxScale)
			count++
		}
	}
	if count == 0 {
		return Score{}
	}
	avg := sum / float64(count)
	return Score{Average: avg, Percentage: avg * 20, Ratings: count}
}

func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// GradeFor keeps "no ratings" distinct from a failing grade.
func GradeFor(percentage float64, hasRatings bool) string {
	if !hasRatings {
		return NoEvaluations
	}
	return LetterGrade(percentage)
}

// Graded rounds percentage for display and grades the rounded value, so a shown
// 90.00 is never a "B".
func Graded(percentage float64, hasRatings bool) (float64, string) {
	shown := Round2(percentage)
	return shown, GradeFor(shown, hasRatings)
}

type Grader struct {
	BoostFactor         float64 `toml:"boost_factor" json:"boost_factor" validate:"gte=0,lte=1"`
	ProtectionThreshold float64 `toml:"protection_threshold" json:"protection_threshold" validate:"gte=0,lte=100"`
}

func NewGrader(boostFactor, protectionThreshold float64) *Grader {
	return &Grader{
		BoostFactor:         boostFactor,
		ProtectionThreshold: protectionThreshold,
	}
}

func DefaultGrader() *Grader {
	return NewGrader(0.5, 80)
}

type Curve struct {
	Original []float64 `json:"original"`
	Adjusted []float64 `json:"adjusted"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
}

// Curve pulls every score below the protection threshold toward the class mean.
// Adjusted keeps the order of scores.
func (g *Grader) Curve(scores []float64) Curve {
	mean, stdDev := Stats(scores)
	curve := Curve{
		Original: append([]float64(nil), scores...),
		Adjusted: make([]float64, len(scores)),
		Mean:     mean,
		StdDev:   stdDev,
	}
	for i, s := range scores {
		curve.Adjusted[i] = g.Adjust(s, mean)
	}
	return curve
}

func (g *Grader) Adjust(score, mean float64) float64 {
	if score >= g.ProtectionThreshold {
		return score
	}
	return math.Min(score+g.BoostFactor*(mean-score), 100)
}

// Stats returns the population mean and standard deviation.
func Stats(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
