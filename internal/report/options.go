package report

import (
	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

const (
	MethodMean   = "mean"
	MethodCurved = "curved"
)

type Options struct {
	Method              string  `json:"grading_method" validate:"required,oneof=mean curved"`
	BoostFactor         float64 `json:"boost_factor" validate:"gte=0,lte=1"`
	ProtectionThreshold float64 `json:"protection_threshold" validate:"gte=0,lte=100"`
}

// DefaultOptions is mean grading with the curve parameters of g, so switching
// to curved only needs the method.
func DefaultOptions(g *scoring.Grader) Options {
	if g == nil {
		g = scoring.DefaultGrader()
	}
	return Options{
		Method:              MethodMean,
		BoostFactor:         g.BoostFactor,
		ProtectionThreshold: g.ProtectionThreshold,
	}
}

func (o Options) Validate() error {
	if err := models.Validate(o); err != nil {
		return apperr.FromValidation(err)
	}
	return nil
}

func (o Options) grader() *scoring.Grader {
	return scoring.NewGrader(o.BoostFactor, o.ProtectionThreshold)
}
