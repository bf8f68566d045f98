package domain

import (
	"time"
)

// MaxAbsoluteValue bounds every numeric field of a financial record.
// Values outside this range are treated as corrupted input.
const MaxAbsoluteValue = 1e12

// FinancialPeriodRecord represents one calendar period of a company's
// financials as ingested from an uploaded spreadsheet. Records are
// constructed once at upload time and never mutated.
type FinancialPeriodRecord struct {
	Date              time.Time `json:"date" validate:"required"`
	Revenue           float64   `json:"revenue" validate:"min=0,max=1000000000000"`
	OperatingExpenses float64   `json:"operating_expenses" validate:"min=0,max=1000000000000"`
	CustomerCount     int       `json:"customer_count" validate:"min=0"`
	ChurnRate         float64   `json:"churn_rate" validate:"min=0,max=100"`
	CashIn            float64   `json:"cash_in" validate:"min=0,max=1000000000000"`
	CashOut           float64   `json:"cash_out" validate:"min=0,max=1000000000000"`
	// CashBalance may be negative, representing an overdraft.
	CashBalance float64 `json:"cash_balance" validate:"min=-1000000000000,max=1000000000000"`
}

// NetBurn returns the period's net cash outflow. Positive means
// spending exceeded income.
func (r FinancialPeriodRecord) NetBurn() float64 {
	return r.CashOut - r.CashIn
}

// Metric holds a point-in-time KPI value together with its
// month-over-month percentage change.
type Metric struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// RunwayMetric extends Metric with the raw month count and the derived
// day count (months x 30).
type RunwayMetric struct {
	Months float64 `json:"months"`
	Days   float64 `json:"days"`
	Change float64 `json:"change"`
}

// KPIMetrics is a derived snapshot computed from an ordered record
// sequence. It is a pure function of its input and carries no identity
// of its own; it is recomputed whenever the underlying records change.
type KPIMetrics struct {
	MRR         Metric       `json:"mrr"`
	CAC         Metric       `json:"cac"`
	ChurnRate   Metric       `json:"churn_rate"`
	BurnRate    Metric       `json:"burn_rate"`
	Runway      RunwayMetric `json:"runway"`
	LTVCACRatio Metric       `json:"ltv_cac_ratio"`
	ARPU        Metric       `json:"arpu"`
}

// ChartPoint is the projection of one record consumed by the dashboard
// chart renderer.
type ChartPoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
	NetBurn float64   `json:"net_burn"`
}
