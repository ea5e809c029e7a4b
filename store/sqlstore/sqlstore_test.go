package sqlstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func insertContainer(t *testing.T, s *sqlstore.Store, level string) *fuel.Container {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	c := &fuel.Container{
		Name:           "Glavni bidon",
		CapacityLiters: dec("1000"),
		CurrentLevel:   dec(level),
		InitialLevel:   dec(level),
		FuelType:       fuel.FuelDiesel,
		Location:       "Magacin",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.InsertContainer(context.Background(), c))
	return c
}

func insertVehicle(t *testing.T, s *sqlstore.Store, name string) *fuel.Vehicle {
	t.Helper()
	now := time.Now().UTC()
	v := &fuel.Vehicle{Name: name, FuelType: fuel.FuelDiesel, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertVehicle(context.Background(), v))
	return v
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx), "second run applies nothing")

	version, err := s.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, sqlstore.SQLite, s.Dialect())
}

func TestParseDialect(t *testing.T) {
	for _, in := range []string{"", "sqlite", "SQLite3"} {
		d, err := sqlstore.ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, sqlstore.SQLite, d)
	}
	for _, in := range []string{"postgres", "postgresql", "pgx"} {
		d, err := sqlstore.ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, sqlstore.Postgres, d)
	}
	_, err := sqlstore.ParseDialect("mysql")
	assert.Error(t, err)
}

func TestWithTx_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx fuel.Store) error {
		c := &fuel.Container{Name: "Privremeni", FuelType: fuel.FuelDiesel, IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		if err := tx.InsertContainer(ctx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := s.ListContainers(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// =============================================================================
// CONTAINERS
// =============================================================================

func TestContainer_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := insertContainer(t, s, "512.75")

	got, err := s.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Glavni bidon", got.Name)
	assert.True(t, dec("512.75").Equal(got.CurrentLevel), "got %s", got.CurrentLevel)
	assert.True(t, dec("512.75").Equal(got.InitialLevel))
	assert.Equal(t, fuel.FuelDiesel, got.FuelType)
	assert.True(t, got.IsActive)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

	missing, err := s.GetContainer(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing, "missing rows are (nil, nil)")

	got.IsActive = false
	require.NoError(t, s.UpdateContainer(ctx, got))
	active, err := s.ListContainers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.ListContainers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetContainerForUpdate_InsideTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := insertContainer(t, s, "100")

	err := s.WithTx(ctx, func(tx fuel.Store) error {
		got, err := tx.GetContainerForUpdate(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, dec("100").Equal(got.CurrentLevel))

		missing, err := tx.GetContainerForUpdate(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestDecrementLevel_CompareAndDecrement(t *testing.T) {
	// GIVEN: A container at 30 L
	// WHEN: Decrementing 31 L, then 30 L
	// THEN: The first is refused without change, the second empties it

	s := newTestStore(t)
	ctx := context.Background()
	c := insertContainer(t, s, "30")

	ok, err := s.DecrementLevel(ctx, c.ID, dec("31"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(got.CurrentLevel))

	ok, err = s.DecrementLevel(ctx, c.ID, dec("30"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentLevel.IsZero())

	assert.ErrorIs(t, s.AdjustLevel(ctx, 999, dec("1")), fuel.ErrContainerNotFound)
}

// =============================================================================
// LEDGER THROUGH fuel.Ledger
// =============================================================================

func TestLedger_OnSQLite(t *testing.T) {
	s := newTestStore(t)
	ledger := fuel.NewLedger(s)
	ctx := context.Background()
	c := insertContainer(t, s, "100")
	v := insertVehicle(t, s, "Traktor")

	base := time.Date(2025, time.April, 2, 7, 0, 0, 0, time.UTC)
	_, err := ledger.AddFuel(ctx, fuel.AddFuelInput{ContainerID: c.ID, QuantityLiters: dec("50"), PricePerLiter: dec("180.5"), AddedAt: base})
	require.NoError(t, err)
	_, err = ledger.AddFuel(ctx, fuel.AddFuelInput{ContainerID: c.ID, QuantityLiters: dec("50"), PricePerLiter: dec("175"), AddedAt: base.Add(-time.Hour)})
	require.NoError(t, err)

	latest, err := s.LatestAddition(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, dec("180.5").Equal(latest.PricePerLiter), "latest by added_at")

	tx, err := ledger.DispenseFuel(ctx, fuel.DispenseInput{ContainerID: c.ID, VehicleID: v.ID, QuantityLiters: dec("20"), TransactionAt: base.Add(time.Hour)})
	require.NoError(t, err)
	require.True(t, tx.TotalPrice.Valid)
	assert.True(t, dec("3610").Equal(tx.TotalPrice.Decimal))

	stored, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.SectorID)
	assert.True(t, stored.PricePerLiter.Valid)
	assert.True(t, base.Add(time.Hour).Equal(stored.TransactionAt))

	_, err = ledger.DispenseFuel(ctx, fuel.DispenseInput{ContainerID: c.ID, VehicleID: v.ID, QuantityLiters: dec("500")})
	assert.ErrorIs(t, err, fuel.ErrInsufficientFuel)

	check, err := ledger.Verify(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent(), "drift %s", check.Drift)
	assert.True(t, dec("180").Equal(check.CurrentLevel))

	_, err = ledger.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	gone, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestLedger_AbortLeavesLevel(t *testing.T) {
	// GIVEN: A dispense that references a vehicle that does not exist
	// WHEN: The ledger aborts inside the transaction
	// THEN: The level is unchanged

	s := newTestStore(t)
	ledger := fuel.NewLedger(s)
	ctx := context.Background()
	c := insertContainer(t, s, "100")

	_, err := ledger.DispenseFuel(ctx, fuel.DispenseInput{ContainerID: c.ID, VehicleID: 404, QuantityLiters: dec("10")})
	assert.ErrorIs(t, err, fuel.ErrVehicleNotFound)

	got, err := s.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got.CurrentLevel))
}

func TestLedger_ConcurrentDispenseOnSQLite(t *testing.T) {
	s := newTestStore(t)
	ledger := fuel.NewLedger(s)
	ctx := context.Background()
	c := insertContainer(t, s, "50")
	v := insertVehicle(t, s, "Kamion")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.DispenseFuel(ctx, fuel.DispenseInput{ContainerID: c.ID, VehicleID: v.ID, QuantityLiters: dec("5")}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	got, err := s.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentLevel.IsZero(), "level %s", got.CurrentLevel)
}

func TestListTransactions_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := insertContainer(t, s, "1000")
	v1 := insertVehicle(t, s, "Traktor")
	v2 := insertVehicle(t, s, "Kamion")

	day := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	for i, v := range []*fuel.Vehicle{v1, v2, v1} {
		tx := &fuel.Transaction{
			ContainerID:    c.ID,
			VehicleID:      v.ID,
			QuantityLiters: dec("10"),
			TransactionAt:  day.AddDate(0, 0, i),
		}
		require.NoError(t, s.InsertTransaction(ctx, tx))
	}

	all, err := s.ListTransactions(ctx, fuel.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, day.AddDate(0, 0, 2).Equal(all[0].TransactionAt), "newest first")
	assert.False(t, all[0].PricePerLiter.Valid)

	mine, err := s.ListTransactions(ctx, fuel.TransactionFilter{VehicleID: &v1.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	ranged, err := s.ListTransactions(ctx, fuel.TransactionFilter{Range: &fuel.DateRange{Start: day, End: day.AddDate(0, 0, 1)}})
	require.NoError(t, err)
	assert.Len(t, ranged, 2, "range bounds are inclusive")

	limited, err := s.ListTransactions(ctx, fuel.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// =============================================================================
// CATALOG & USERS
// =============================================================================

func TestCatalog_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vt := &fuel.VehicleType{Name: "Traktor", Icon: "tractor", IsSystem: true, IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.InsertVehicleType(ctx, vt))
	sec := &fuel.Sector{Name: "Ratarstvo", IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.InsertSector(ctx, sec))

	v := &fuel.Vehicle{Name: "IMT 539", VehicleTypeID: &vt.ID, SectorID: &sec.ID, FuelType: fuel.FuelDiesel, IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.InsertVehicle(ctx, v))

	got, err := s.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.VehicleTypeID)
	assert.Equal(t, vt.ID, *got.VehicleTypeID)
	require.NotNil(t, got.SectorID)
	assert.Equal(t, sec.ID, *got.SectorID)

	gotType, err := s.GetVehicleType(ctx, vt.ID)
	require.NoError(t, err)
	assert.True(t, gotType.IsSystem)

	sec.IsActive = false
	require.NoError(t, s.UpdateSector(ctx, sec))
	active, err := s.ListSectors(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := auth.CreateUser(ctx, s, "Admin", "admin123", "Administrator")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	got, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got, "lookup is case-insensitive")
	assert.Equal(t, "Administrator", got.Name)

	_, err = auth.CreateUser(ctx, s, "admin", "other", "")
	assert.ErrorIs(t, err, auth.ErrUserExists)

	missing, err := s.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
