package domain

import "strings"

// Direction is the option direction of a signal
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// ParseDirection normalises and validates a direction
func ParseDirection(s string) (Direction, bool) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DirectionCall, DirectionPut:
		return d, true
	}
	return "", false
}

// SignalResult is the lifecycle result stored on a signal
type SignalResult string

const (
	ResultPending SignalResult = "PENDING"
	ResultWin     SignalResult = "WIN"
	ResultLoss    SignalResult = "LOSS"
)

// ParseSignalResult normalises and validates a result
func ParseSignalResult(s string) (SignalResult, bool) {
	r := SignalResult(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case ResultPending, ResultWin, ResultLoss:
		return r, true
	}
	return "", false
}

// Settled reports whether the result carries a financial outcome
func (r SignalResult) Settled() bool {
	return r == ResultWin || r == ResultLoss
}
