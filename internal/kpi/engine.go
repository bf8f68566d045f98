package kpi

import (
	"errors"
	"sort"

	"saaspulse/pkg/contracts/domain"
)

// ErrNoRecords is returned when metrics are requested for an empty
// record sequence. It is the engine's only failure mode; every
// division is otherwise guarded.
var ErrNoRecords = errors.New("no financial records to compute KPIs from")

const (
	// maxRunwayMonths is the sentinel reported when the business is
	// cash-flow-positive or break-even and runway would otherwise be
	// infinite.
	maxRunwayMonths = 999
	daysPerMonth    = 30

	// LTV assumes a three-year customer lifetime on current MRR.
	lifetimeMonths = 36
)

// Compute derives the KPI snapshot from a record sequence. The input is
// not mutated: the engine sorts a copy chronologically (stable, so
// records sharing a date keep their input order) and treats the last
// record as the current period and the second-to-last as the previous
// one. With a single record every month-over-month change is zero.
func Compute(records []domain.FinancialPeriodRecord) (domain.KPIMetrics, error) {
	if len(records) == 0 {
		return domain.KPIMetrics{}, ErrNoRecords
	}

	sorted := sortByDate(records)
	current := sorted[len(sorted)-1]
	previous := current
	if len(sorted) > 1 {
		previous = sorted[len(sorted)-2]
	}

	avgBurn := averageBurnRate(sorted)

	mrr := current.Revenue
	prevMRR := previous.Revenue

	cac := acquisitionCost(current)
	prevCAC := acquisitionCost(previous)

	burn := current.NetBurn()
	prevBurn := previous.NetBurn()

	runwayMonths := runway(current.CashBalance, avgBurn)
	prevRunwayMonths := runway(previous.CashBalance, avgBurn)

	ltvCAC := ltvCACRatio(current)
	prevLTVCAC := ltvCACRatio(previous)

	arpu := revenuePerUser(current)
	prevARPU := revenuePerUser(previous)

	return domain.KPIMetrics{
		MRR:       domain.Metric{Value: mrr, Change: percentChange(mrr, prevMRR)},
		CAC:       domain.Metric{Value: cac, Change: percentChange(cac, prevCAC)},
		ChurnRate: domain.Metric{Value: current.ChurnRate, Change: percentChange(current.ChurnRate, previous.ChurnRate)},
		BurnRate:  domain.Metric{Value: burn, Change: percentChange(burn, prevBurn)},
		Runway: domain.RunwayMetric{
			Months: runwayMonths,
			Days:   runwayMonths * daysPerMonth,
			Change: percentChange(runwayMonths, prevRunwayMonths),
		},
		LTVCACRatio: domain.Metric{Value: ltvCAC, Change: percentChange(ltvCAC, prevLTVCAC)},
		ARPU:        domain.Metric{Value: arpu, Change: percentChange(arpu, prevARPU)},
	}, nil
}

// ChartSeries projects the chronologically sorted records onto the
// (date, revenue, net burn) triples the dashboard chart consumes.
func ChartSeries(records []domain.FinancialPeriodRecord) []domain.ChartPoint {
	sorted := sortByDate(records)
	points := make([]domain.ChartPoint, len(sorted))
	for i, rec := range sorted {
		points[i] = domain.ChartPoint{
			Date:    rec.Date,
			Revenue: rec.Revenue,
			NetBurn: rec.NetBurn(),
		}
	}
	return points
}

// sortByDate returns a chronologically ascending copy of records.
func sortByDate(records []domain.FinancialPeriodRecord) []domain.FinancialPeriodRecord {
	sorted := make([]domain.FinancialPeriodRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// acquisitionCost is operating expense per customer, 0 when there are
// no customers.
func acquisitionCost(r domain.FinancialPeriodRecord) float64 {
	if r.CustomerCount == 0 {
		return 0
	}
	return r.OperatingExpenses / float64(r.CustomerCount)
}

// revenuePerUser is MRR per customer, 0 when there are no customers.
func revenuePerUser(r domain.FinancialPeriodRecord) float64 {
	if r.CustomerCount == 0 {
		return 0
	}
	return r.Revenue / float64(r.CustomerCount)
}

// ltvCACRatio relates a simplified three-year lifetime value to the
// acquisition cost, 0 whenever either denominator bottoms out.
func ltvCACRatio(r domain.FinancialPeriodRecord) float64 {
	if r.CustomerCount == 0 {
		return 0
	}
	ltv := r.Revenue * lifetimeMonths / float64(r.CustomerCount)
	cac := acquisitionCost(r)
	if cac == 0 {
		return 0
	}
	return ltv / cac
}

// runway is the months until the cash balance reaches zero at the
// average historical burn rate, clamped to the sentinel when the
// business is not burning cash.
func runway(cashBalance, avgBurn float64) float64 {
	if avgBurn <= 0 {
		return maxRunwayMonths
	}
	return cashBalance / avgBurn
}

// averageBurnRate is the mean net cash outflow across all records.
func averageBurnRate(records []domain.FinancialPeriodRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.NetBurn()
	}
	return total / float64(len(records))
}

// percentChange is the month-over-month change, 0 when the previous
// value is 0.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
