package ledger

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Stats derives totals from the current transaction list. Positive amounts
// count as income, negative amounts as expenses. Nothing is cached.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		TotalTransactions: len(l.transactions),
		Balance:           l.balance,
	}
	for _, tx := range l.transactions {
		switch {
		case tx.Amount.IsPositive():
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			s.IncomeCount++
		case tx.Amount.IsNegative():
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount.Abs())
			s.ExpenseCount++
		}
	}
	s.NetIncome = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Transactions returns a filtered, sorted copy of the transaction list
func (l *Ledger) Transactions(f Filter) []Transaction {
	l.mu.RLock()
	out := make([]Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	l.mu.RUnlock()

	less := func(i, j int) bool {
		if f.SortBy == SortByAmount {
			return out[i].Amount.LessThan(out[j].Amount)
		}
		return out[i].Date.Before(out[j].Date)
	}
	if f.Ascending {
		sort.SliceStable(out, less)
	} else {
		sort.SliceStable(out, func(i, j int) bool { return less(j, i) })
	}
	return out
}

func (f Filter) matches(tx Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(tx.Description + " " + tx.Category + " " + tx.Pair)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// Performance summarises settled trades: win rate, average win and loss and
// the standard deviation of trade results.
func (l *Ledger) Performance() Performance {
	l.mu.RLock()
	var results, wins, losses []float64
	net := decimal.Zero
	for _, tx := range l.transactions {
		if !tx.IsSettlement() {
			continue
		}
		v := tx.Amount.InexactFloat64()
		results = append(results, v)
		net = net.Add(tx.Amount)
		if tx.Amount.IsPositive() {
			wins = append(wins, v)
		} else {
			losses = append(losses, -v)
		}
	}
	l.mu.RUnlock()

	p := Performance{
		TotalTrades: len(results),
		Wins:        len(wins),
		Losses:      len(losses),
		NetProfit:   net,
	}
	if p.TotalTrades == 0 {
		return p
	}

	p.WinRate = round(float64(p.Wins)/float64(p.TotalTrades)*100, 1)
	if len(wins) > 0 {
		p.AverageWin = round(stat.Mean(wins, nil), 2)
	}
	if len(losses) > 0 {
		p.AverageLoss = round(stat.Mean(losses, nil), 2)
	}
	if len(results) > 1 {
		p.StdDev = round(stat.StdDev(results, nil), 2)
	}
	return p
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
