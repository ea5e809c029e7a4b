package seed_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/fuel/store"
	"github.com/zoxknez/bidon/seed"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultFixture(t *testing.T) {
	f, err := seed.Default()
	require.NoError(t, err)

	assert.Equal(t, "admin", f.Admin.Username)
	assert.Len(t, f.VehicleTypes, 8)
	assert.Len(t, f.Sectors, 4)
	require.Len(t, f.Containers, 1)
	assert.Equal(t, "500", f.Containers[0].CurrentLevel.String())
}

func TestRun_Idempotent(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Seeding twice
	// THEN: The second run inserts nothing

	s := store.NewMemory()
	ctx := context.Background()
	f, err := seed.Default()
	require.NoError(t, err)

	first, err := seed.Run(ctx, s, f, discard())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Users: 1, VehicleTypes: 8, Sectors: 4, Containers: 1}, first)

	second, err := seed.Run(ctx, s, f, discard())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{}, second)
}

func TestRun_SeededDataIsUsable(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	f, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Run(ctx, s, f, discard())
	require.NoError(t, err)

	containers, err := s.ListContainers(ctx, true)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.True(t, containers[0].InitialLevel.Equal(containers[0].CurrentLevel), "seeded level is the genesis balance")

	check, err := fuel.NewLedger(s).Verify(ctx, containers[0].ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent())

	types, err := s.ListVehicleTypes(ctx, true)
	require.NoError(t, err)
	for _, vt := range types {
		assert.True(t, vt.IsSystem, vt.Name)
	}

	issuer, err := auth.NewIssuer([]byte("seed-test"), 0)
	require.NoError(t, err)
	_, _, err = auth.NewService(s, issuer).Login(ctx, "admin", "admin123")
	assert.NoError(t, err)
}

func TestParse_BadFuelType(t *testing.T) {
	f, err := seed.Parse([]byte(`
containers:
  - name: Stari bidon
    capacity_liters: "200"
    current_level: "0"
    fuel_type: kerozin
`))
	require.NoError(t, err)

	_, err = seed.Run(context.Background(), store.NewMemory(), f, discard())
	assert.ErrorIs(t, err, fuel.ErrInvalidInput)
}
