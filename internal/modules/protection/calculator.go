// Package protection projects martingale-style recovery levels: after each
// loss the next operation is the previous one times a multiplier.
package protection

import (
	"errors"
	"fmt"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for non-positive values or too many levels
var ErrInvalidInput = errors.New("invalid protection input")

// MaxLevels bounds the projection; 0.5^30 is already below one in a billion
const MaxLevels = 30

// Risk bands by required capital
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Alert severities
const (
	AlertInfo    = "info"
	AlertWarning = "warning"
	AlertError   = "error"
)

var (
	highRiskThreshold    = decimal.NewFromInt(100)
	mediumRiskThreshold  = decimal.NewFromInt(50)
	highCapitalThreshold = decimal.NewFromInt(500)
	half                 = decimal.NewFromFloat(0.5)
)

// Input configures a projection
type Input struct {
	Value         decimal.Decimal `json:"value"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	Levels        int             `json:"levels"`
	Currency      string          `json:"currency"`
	IncludeSpread bool            `json:"includeSpread"`
	Spread        decimal.Decimal `json:"spread"`
}

// DefaultInput is 10 BRL doubled over three levels, no spread
func DefaultInput() Input {
	return Input{
		Value:      decimal.NewFromInt(10),
		Multiplier: decimal.NewFromInt(2),
		Levels:     3,
		Currency:   domain.DefaultCurrency,
	}
}

// Level is one step of the projection
type Level struct {
	Level           int             `json:"level"`
	Value           decimal.Decimal `json:"value"`
	Accumulated     decimal.Decimal `json:"accumulated"`
	RequiredCapital decimal.Decimal `json:"requiredCapital"`
	Spread          decimal.Decimal `json:"spread"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	Risk            string          `json:"risk"`
}

// Statistics summarise a projection
type Statistics struct {
	TotalRequiredCapital    decimal.Decimal `json:"totalRequiredCapital"`
	LargestOperation        decimal.Decimal `json:"largestOperation"`
	LossSequenceProbability decimal.Decimal `json:"lossSequenceProbability"`
	LowRiskLevels           int             `json:"lowRiskLevels"`
	MediumRiskLevels        int             `json:"mediumRiskLevels"`
	HighRiskLevels          int             `json:"highRiskLevels"`
}

// Alert is a human-readable warning about the projection
type Alert struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Result is the full projection
type Result struct {
	Input      Input      `json:"input"`
	Levels     []Level    `json:"levels"`
	Statistics Statistics `json:"statistics"`
	Alerts     []Alert    `json:"alerts"`
}

// Calculate projects in.Levels levels
func Calculate(in Input) (*Result, error) {
	if in.Currency == "" {
		in.Currency = domain.DefaultCurrency
	}
	if !in.Value.IsPositive() || !in.Multiplier.IsPositive() {
		return nil, fmt.Errorf("%w: value and multiplier must be positive", ErrInvalidInput)
	}
	if in.Levels <= 0 || in.Levels > MaxLevels {
		return nil, fmt.Errorf("%w: levels must be between 1 and %d", ErrInvalidInput, MaxLevels)
	}
	if in.IncludeSpread && in.Spread.IsNegative() {
		return nil, fmt.Errorf("%w: spread must not be negative", ErrInvalidInput)
	}

	levels := make([]Level, 0, in.Levels)
	accumulated := decimal.Zero
	value := in.Value
	for i := 1; i <= in.Levels; i++ {
		accumulated = accumulated.Add(value)

		spread := decimal.Zero
		if in.IncludeSpread {
			spread = value.Mul(in.Spread)
		}

		levels = append(levels, Level{
			Level:           i,
			Value:           value,
			Accumulated:     accumulated,
			RequiredCapital: accumulated,
			Spread:          spread,
			NetProfit:       value.Sub(accumulated).Sub(spread),
			Risk:            riskFor(accumulated),
		})

		value = value.Mul(in.Multiplier)
	}

	return &Result{
		Input:      in,
		Levels:     levels,
		Statistics: statistics(levels),
		Alerts:     alerts(levels, in),
	}, nil
}

func riskFor(capital decimal.Decimal) string {
	switch {
	case capital.GreaterThan(highRiskThreshold):
		return RiskHigh
	case capital.GreaterThan(mediumRiskThreshold):
		return RiskMedium
	default:
		return RiskLow
	}
}

func statistics(levels []Level) Statistics {
	last := levels[len(levels)-1]
	stats := Statistics{
		TotalRequiredCapital:    last.Accumulated,
		LargestOperation:        last.Value,
		LossSequenceProbability: half.Pow(decimal.NewFromInt(int64(len(levels)))).Mul(decimal.NewFromInt(100)),
	}
	for _, l := range levels {
		switch l.Risk {
		case RiskHigh:
			stats.HighRiskLevels++
		case RiskMedium:
			stats.MediumRiskLevels++
		default:
			stats.LowRiskLevels++
		}
	}
	return stats
}

func alerts(levels []Level, in Input) []Alert {
	out := []Alert{}
	total := levels[len(levels)-1].Accumulated

	if total.GreaterThan(highCapitalThreshold) {
		out = append(out, Alert{
			Severity: AlertWarning,
			Title:    "High capital required",
			Message:  fmt.Sprintf("Completing every level needs %s.", domain.FormatMoney(total, in.Currency)),
		})
	}

	high := 0
	maxProfit := levels[0].NetProfit
	for _, l := range levels {
		if l.Risk == RiskHigh {
			high++
		}
		if l.NetProfit.GreaterThan(maxProfit) {
			maxProfit = l.NetProfit
		}
	}

	if high > 0 {
		out = append(out, Alert{
			Severity: AlertError,
			Title:    "High risk levels",
			Message: fmt.Sprintf("%d level(s) need more than %s of capital.",
				high, domain.FormatMoney(highRiskThreshold, in.Currency)),
		})
	}

	if maxProfit.LessThan(in.Value.Mul(half)) {
		out = append(out, Alert{
			Severity: AlertInfo,
			Title:    "Reduced profit",
			Message:  "Net profit is significantly reduced across the levels.",
		})
	}

	return out
}
