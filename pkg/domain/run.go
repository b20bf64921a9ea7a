package domain

import (
	"fmt"
	"strings"
	"time"
)

// SummaryDateLayout is the date format the summaries endpoint uses.
const SummaryDateLayout = "2006-01-02"

// RunRequest is a single delivery run as returned by GET /requests.
type RunRequest struct {
	ID               int64   `json:"id"`
	PickupLocation   string  `json:"pickup_location"`
	DeliveryLocation string  `json:"delivery_location"`
	Price            float64 `json:"price"`
	PickupDate       string  `json:"pickup_date"`
	Status           string  `json:"status,omitempty"`
}

// RunSummary aggregates one day of runs for GET /runs/summaries.
type RunSummary struct {
	Date                 string  `json:"date"                 yaml:"date"`
	TotalRuns            int     `json:"totalRuns"            yaml:"total_runs"`
	TotalRunsCompleted   int     `json:"totalRunsCompleted"   yaml:"total_runs_completed"`
	TotalAmount          float64 `json:"totalAmount"          yaml:"total_amount"`
	TotalAmountCompleted float64 `json:"totalAmountCompleted" yaml:"total_amount_completed"`
}

// Day returns the summary date without any time component.
// Servers sometimes send full timestamps ("2024-03-01T00:00:00.000Z").
func (s RunSummary) Day() string {
	d, _, _ := strings.Cut(s.Date, "T")
	return d
}

// Time parses Day. The zero time is returned for unparseable dates.
func (s RunSummary) Time() time.Time {
	t, err := time.Parse(SummaryDateLayout, s.Day())
	if err != nil {
		return time.Time{}
	}
	return t
}

// SummaryTotals is the sum over a set of daily summaries.
type SummaryTotals struct {
	Runs   int     `json:"totalRuns"   yaml:"total_runs"`
	Amount float64 `json:"totalAmount" yaml:"total_amount"`
}

// AmountString renders the amount with two decimals, the format every
// view and report uses.
func (t SummaryTotals) AmountString() string {
	return FormatAmount(t.Amount)
}

// Totals sums runs and amounts across summaries.
func Totals(summaries []RunSummary) SummaryTotals {
	var t SummaryTotals
	for _, s := range summaries {
		t.Runs += s.TotalRuns
		t.Amount += s.TotalAmount
	}
	return t
}

// FormatAmount renders a currency amount with two decimals.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// SummaryQuery filters GET /runs/summaries.
type SummaryQuery struct {
	Year     int
	Month    int
	BranchID int64
	ClientID int64
}
