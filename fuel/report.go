/*
report.go - Read-only aggregations over the fuel ledger

PURPOSE:
  Groups additions and transactions by vehicle, sector, container or
  time bucket. Never mutates state.

REPORTS:
  ByVehicle:    dispensed litres/cost/count per vehicle, litres desc
  BySector:     same per sector; unassigned transactions form a nil-sector group
  ByContainer:  dispensed and added totals over every active container,
                zero-filled when a container had no activity
  TimeReport:   both ledgers bucketed by day, ISO week, month or year, plus
                the average addition price over the range
  TotalCosts:   additions only (procurement, not consumption)
  Dashboard:    stock on hand and this month's activity

RANGES:
  A nil *DateRange means "all time". Ranges are closed on both ends.

FAILURE POLICY:
  Reports never return an error. A store failure is handed to the
  OnError hook and the caller receives an empty or zero-valued result.
  Callers cannot tell "no data" from "query failed"; the hook is where
  failures become visible (logs and bidon_report_failures_total).

ORDERING:
  Sorting by litres is stable. Ties keep the order in which groups were
  first seen in the newest-first ledger listing.

SEE ALSO:
  - period.go: Bucket keys
  - ../export: Renders a Bundle to XLSX/PDF
*/
package fuel

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Report names passed to the error hook.
const (
	ReportByVehicle   = "by_vehicle"
	ReportBySector    = "by_sector"
	ReportByContainer = "by_container"
	ReportTime        = "time"
	ReportTotalCosts  = "total_costs"
	ReportDashboard   = "dashboard"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// VehicleTotal is one row of the by-vehicle report.
type VehicleTotal struct {
	VehicleID    int64
	VehicleName  string
	Registration string
	TotalLiters  decimal.Decimal
	TotalPrice   decimal.Decimal
	Count        int
}

// SectorTotal is one row of the by-sector report. SectorID is nil for
// transactions recorded without a sector.
type SectorTotal struct {
	SectorID    *int64
	SectorName  string
	TotalLiters decimal.Decimal
	TotalPrice  decimal.Decimal
	Count       int
}

// ContainerTotal is one row of the by-container report.
type ContainerTotal struct {
	ContainerID     int64
	ContainerName   string
	CurrentLevel    decimal.Decimal
	DispensedLiters decimal.Decimal
	DispensedPrice  decimal.Decimal
	AddedLiters     decimal.Decimal
	AddedPrice      decimal.Decimal
}

// BucketTotal is one time bucket.
type BucketTotal struct {
	Period string
	Liters decimal.Decimal
	Price  decimal.Decimal
	Count  int
}

// TimeReport holds both ledgers bucketed by the same period.
type TimeReport struct {
	Period           Period
	Transactions     []BucketTotal
	Additions        []BucketTotal
	AvgPricePerLiter decimal.Decimal
}

// CostSummary totals procurement.
type CostSummary struct {
	TotalLiters      decimal.Decimal
	TotalPrice       decimal.Decimal
	AvgPricePerLiter decimal.Decimal
}

// DashboardStats is the landing-page summary.
type DashboardStats struct {
	ContainersCount        int
	TotalFuel              decimal.Decimal
	TotalCapacity          decimal.Decimal
	MonthlyDispensedLiters decimal.Decimal
	MonthlyDispensedPrice  decimal.Decimal
	MonthlyTransactions    int
	MonthlyAddedLiters     decimal.Decimal
	MonthlyAddedPrice      decimal.Decimal
}

// Bundle collects the range reports that exports render together.
type Bundle struct {
	Range       *DateRange
	GeneratedAt time.Time
	Vehicles    []VehicleTotal
	Sectors     []SectorTotal
	Containers  []ContainerTotal
	Costs       CostSummary
}

// =============================================================================
// REPORTER
// =============================================================================

// ReportErrorHook observes a report that degraded to an empty result.
type ReportErrorHook func(report string, err error)

// Reporter runs aggregations against a Store.
type Reporter struct {
	store   Store
	loc     *time.Location
	now     func() time.Time
	onError ReportErrorHook
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithLocation sets the time zone used to cut time buckets and months.
func WithLocation(loc *time.Location) ReporterOption {
	return func(r *Reporter) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithErrorHook registers the failure observer.
func WithErrorHook(h ReportErrorHook) ReporterOption {
	return func(r *Reporter) { r.onError = h }
}

// WithReportClock overrides the clock used for "this month".
func WithReportClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// NewReporter creates a reporter. Without a hook, failures go to slog.Default.
func NewReporter(store Store, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		store: store,
		loc:   time.UTC,
		now:   time.Now,
		onError: func(report string, err error) {
			slog.Default().Error("report failed", "report", report, "error", err)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) fail(report string, err error) {
	r.onError(report, err)
}

// ByVehicle sums dispensed fuel per vehicle.
func (r *Reporter) ByVehicle(ctx context.Context, rng *DateRange) []VehicleTotal {
	out, err := r.byVehicle(ctx, rng)
	if err != nil {
		r.fail(ReportByVehicle, err)
		return []VehicleTotal{}
	}
	return out
}

func (r *Reporter) byVehicle(ctx context.Context, rng *DateRange) ([]VehicleTotal, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	txs, err := r.store.ListTransactions(ctx, TransactionFilter{Range: rng})
	if err != nil {
		return nil, err
	}
	vehicles, err := r.store.ListVehicles(ctx, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	index := make(map[int64]int)
	out := []VehicleTotal{}
	for _, t := range txs {
		i, ok := index[t.VehicleID]
		if !ok {
			v := byID[t.VehicleID]
			out = append(out, VehicleTotal{
				VehicleID:    t.VehicleID,
				VehicleName:  v.Name,
				Registration: v.Registration,
			})
			i = len(out) - 1
			index[t.VehicleID] = i
		}
		out[i].TotalLiters = out[i].TotalLiters.Add(t.QuantityLiters)
		if t.TotalPrice.Valid {
			out[i].TotalPrice = out[i].TotalPrice.Add(t.TotalPrice.Decimal)
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].TotalLiters.GreaterThan(out[b].TotalLiters)
	})
	return out, nil
}

// BySector sums dispensed fuel per sector.
func (r *Reporter) BySector(ctx context.Context, rng *DateRange) []SectorTotal {
	out, err := r.bySector(ctx, rng)
	if err != nil {
		r.fail(ReportBySector, err)
		return []SectorTotal{}
	}
	return out
}

func (r *Reporter) bySector(ctx context.Context, rng *DateRange) ([]SectorTotal, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	txs, err := r.store.ListTransactions(ctx, TransactionFilter{Range: rng})
	if err != nil {
		return nil, err
	}
	sectors, err := r.store.ListSectors(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(sectors))
	for _, s := range sectors {
		names[s.ID] = s.Name
	}

	const unassigned = int64(-1)
	index := make(map[int64]int)
	out := []SectorTotal{}
	for _, t := range txs {
		key := unassigned
		if t.SectorID != nil {
			key = *t.SectorID
		}
		i, ok := index[key]
		if !ok {
			row := SectorTotal{}
			if t.SectorID != nil {
				id := *t.SectorID
				row.SectorID = &id
				row.SectorName = names[id]
			}
			out = append(out, row)
			i = len(out) - 1
			index[key] = i
		}
		out[i].TotalLiters = out[i].TotalLiters.Add(t.QuantityLiters)
		if t.TotalPrice.Valid {
			out[i].TotalPrice = out[i].TotalPrice.Add(t.TotalPrice.Decimal)
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].TotalLiters.GreaterThan(out[b].TotalLiters)
	})
	return out, nil
}

// ByContainer reports dispensed and added totals for every active
// container. Containers without activity appear with zero totals.
func (r *Reporter) ByContainer(ctx context.Context, rng *DateRange) []ContainerTotal {
	out, err := r.byContainer(ctx, rng)
	if err != nil {
		r.fail(ReportByContainer, err)
		return []ContainerTotal{}
	}
	return out
}

func (r *Reporter) byContainer(ctx context.Context, rng *DateRange) ([]ContainerTotal, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	containers, err := r.store.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}
	txs, err := r.store.ListTransactions(ctx, TransactionFilter{Range: rng})
	if err != nil {
		return nil, err
	}
	additions, err := r.store.ListAdditions(ctx, AdditionFilter{Range: rng})
	if err != nil {
		return nil, err
	}

	type sums struct{ liters, price decimal.Decimal }
	dispensed := make(map[int64]sums)
	for _, t := range txs {
		s := dispensed[t.ContainerID]
		s.liters = s.liters.Add(t.QuantityLiters)
		if t.TotalPrice.Valid {
			s.price = s.price.Add(t.TotalPrice.Decimal)
		}
		dispensed[t.ContainerID] = s
	}
	added := make(map[int64]sums)
	for _, a := range additions {
		s := added[a.ContainerID]
		s.liters = s.liters.Add(a.QuantityLiters)
		s.price = s.price.Add(a.TotalPrice)
		added[a.ContainerID] = s
	}

	out := make([]ContainerTotal, 0, len(containers))
	for _, c := range containers {
		d, a := dispensed[c.ID], added[c.ID]
		out = append(out, ContainerTotal{
			ContainerID:     c.ID,
			ContainerName:   c.Name,
			CurrentLevel:    c.CurrentLevel,
			DispensedLiters: d.liters,
			DispensedPrice:  d.price,
			AddedLiters:     a.liters,
			AddedPrice:      a.price,
		})
	}
	return out, nil
}

// TimeReport buckets both ledgers by period over rng.
func (r *Reporter) TimeReport(ctx context.Context, period Period, rng *DateRange) TimeReport {
	out, err := r.timeReport(ctx, period, rng)
	if err != nil {
		r.fail(ReportTime, err)
		return TimeReport{Period: period, Transactions: []BucketTotal{}, Additions: []BucketTotal{}}
	}
	return out
}

func (r *Reporter) timeReport(ctx context.Context, period Period, rng *DateRange) (TimeReport, error) {
	if err := rng.Validate(); err != nil {
		return TimeReport{}, err
	}
	txs, err := r.store.ListTransactions(ctx, TransactionFilter{Range: rng})
	if err != nil {
		return TimeReport{}, err
	}
	additions, err := r.store.ListAdditions(ctx, AdditionFilter{Range: rng})
	if err != nil {
		return TimeReport{}, err
	}

	txBuckets := newBucketer(period, r.loc)
	for _, t := range txs {
		price := decimal.Zero
		if t.TotalPrice.Valid {
			price = t.TotalPrice.Decimal
		}
		txBuckets.add(t.TransactionAt, t.QuantityLiters, price)
	}
	addBuckets := newBucketer(period, r.loc)
	liters, cost := decimal.Zero, decimal.Zero
	for _, a := range additions {
		addBuckets.add(a.AddedAt, a.QuantityLiters, a.TotalPrice)
		liters = liters.Add(a.QuantityLiters)
		cost = cost.Add(a.TotalPrice)
	}

	return TimeReport{
		Period:           period,
		Transactions:     txBuckets.sorted(),
		Additions:        addBuckets.sorted(),
		AvgPricePerLiter: averagePrice(cost, liters),
	}, nil
}

// TotalCosts sums procurement over rng.
func (r *Reporter) TotalCosts(ctx context.Context, rng *DateRange) CostSummary {
	out, err := r.totalCosts(ctx, rng)
	if err != nil {
		r.fail(ReportTotalCosts, err)
		return CostSummary{}
	}
	return out
}

func (r *Reporter) totalCosts(ctx context.Context, rng *DateRange) (CostSummary, error) {
	if err := rng.Validate(); err != nil {
		return CostSummary{}, err
	}
	additions, err := r.store.ListAdditions(ctx, AdditionFilter{Range: rng})
	if err != nil {
		return CostSummary{}, err
	}
	var s CostSummary
	for _, a := range additions {
		s.TotalLiters = s.TotalLiters.Add(a.QuantityLiters)
		s.TotalPrice = s.TotalPrice.Add(a.TotalPrice)
	}
	s.AvgPricePerLiter = averagePrice(s.TotalPrice, s.TotalLiters)
	return s, nil
}

// Dashboard summarises stock on hand and the current month's activity.
func (r *Reporter) Dashboard(ctx context.Context) DashboardStats {
	out, err := r.dashboard(ctx)
	if err != nil {
		r.fail(ReportDashboard, err)
		return DashboardStats{}
	}
	return out
}

func (r *Reporter) dashboard(ctx context.Context) (DashboardStats, error) {
	var s DashboardStats
	containers, err := r.store.ListContainers(ctx, true)
	if err != nil {
		return s, err
	}
	s.ContainersCount = len(containers)
	for _, c := range containers {
		s.TotalFuel = s.TotalFuel.Add(c.CurrentLevel)
		s.TotalCapacity = s.TotalCapacity.Add(c.CapacityLiters)
	}

	month := MonthRange(r.now().In(r.loc))
	txs, err := r.store.ListTransactions(ctx, TransactionFilter{Range: month})
	if err != nil {
		return s, err
	}
	for _, t := range txs {
		s.MonthlyDispensedLiters = s.MonthlyDispensedLiters.Add(t.QuantityLiters)
		if t.TotalPrice.Valid {
			s.MonthlyDispensedPrice = s.MonthlyDispensedPrice.Add(t.TotalPrice.Decimal)
		}
	}
	s.MonthlyTransactions = len(txs)

	additions, err := r.store.ListAdditions(ctx, AdditionFilter{Range: month})
	if err != nil {
		return s, err
	}
	for _, a := range additions {
		s.MonthlyAddedLiters = s.MonthlyAddedLiters.Add(a.QuantityLiters)
		s.MonthlyAddedPrice = s.MonthlyAddedPrice.Add(a.TotalPrice)
	}
	return s, nil
}

// Bundle runs the range reports used by exports.
func (r *Reporter) Bundle(ctx context.Context, rng *DateRange) Bundle {
	return Bundle{
		Range:       rng,
		GeneratedAt: r.now().In(r.loc),
		Vehicles:    r.ByVehicle(ctx, rng),
		Sectors:     r.BySector(ctx, rng),
		Containers:  r.ByContainer(ctx, rng),
		Costs:       r.TotalCosts(ctx, rng),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// averagePrice divides cost by litres, returning 0 when no litres were bought.
func averagePrice(cost, liters decimal.Decimal) decimal.Decimal {
	if liters.IsZero() {
		return decimal.Zero
	}
	return cost.Div(liters).Round(2)
}

type bucketer struct {
	period  Period
	loc     *time.Location
	buckets map[string]*BucketTotal
}

func newBucketer(period Period, loc *time.Location) *bucketer {
	return &bucketer{period: period, loc: loc, buckets: make(map[string]*BucketTotal)}
}

func (b *bucketer) add(at time.Time, liters, price decimal.Decimal) {
	key := b.period.Key(at, b.loc)
	bt, ok := b.buckets[key]
	if !ok {
		bt = &BucketTotal{Period: key}
		b.buckets[key] = bt
	}
	bt.Liters = bt.Liters.Add(liters)
	bt.Price = bt.Price.Add(price)
	bt.Count++
}

func (b *bucketer) sorted() []BucketTotal {
	out := make([]BucketTotal, 0, len(b.buckets))
	for _, bt := range b.buckets {
		out = append(out, *bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
