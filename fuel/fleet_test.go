package fuel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/fuel/store"
)

func TestFleet_SystemVehicleTypeCannotBeDeleted(t *testing.T) {
	// GIVEN: A seeded system vehicle type and a user-defined one
	// WHEN: Deleting each
	// THEN: The system type is refused, the custom type is deactivated

	s := store.NewMemory()
	fleet := fuel.NewFleet(s)
	ctx := context.Background()

	system := &fuel.VehicleType{Name: "Traktor", IsSystem: true, IsActive: true}
	require.NoError(t, s.InsertVehicleType(ctx, system))
	custom, err := fleet.CreateVehicleType(ctx, "Kvad", "")
	require.NoError(t, err)

	err = fleet.DeleteVehicleType(ctx, system.ID)
	assert.ErrorIs(t, err, fuel.ErrSystemVehicleType)
	assert.True(t, fuel.IsConflict(err))

	require.NoError(t, fleet.DeleteVehicleType(ctx, custom.ID))

	active, err := fleet.ListVehicleTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Traktor", active[0].Name)

	assert.ErrorIs(t, fleet.DeleteVehicleType(ctx, 999), fuel.ErrVehicleTypeNotFound)
}

func TestFleet_VehicleReferencesMustExist(t *testing.T) {
	fleet := fuel.NewFleet(store.NewMemory())
	ctx := context.Background()

	missing := int64(42)
	_, err := fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: "Traktor", VehicleTypeID: &missing})
	assert.ErrorIs(t, err, fuel.ErrVehicleTypeNotFound)

	_, err = fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: "Traktor", SectorID: &missing})
	assert.ErrorIs(t, err, fuel.ErrSectorNotFound)

	_, err = fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: " "})
	assert.ErrorIs(t, err, fuel.ErrInvalidInput)

	_, err = fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: "Traktor", FuelType: "kerozin"})
	var verr *fuel.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fuelType", verr.Field)
}

func TestFleet_VehicleLifecycle(t *testing.T) {
	fleet := fuel.NewFleet(store.NewMemory())
	ctx := context.Background()

	sector, err := fleet.CreateSector(ctx, "Šumarstvo", "Sječa i prevoz")
	require.NoError(t, err)

	v, err := fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: "Stihl MS 261", SectorID: &sector.ID, FuelType: fuel.FuelPetrol})
	require.NoError(t, err)
	assert.True(t, v.IsActive)
	assert.Equal(t, fuel.FuelPetrol, v.FuelType)

	_, err = fleet.CreateVehicle(ctx, fuel.VehicleInput{Name: "Agregat"})
	require.NoError(t, err)

	updated, err := fleet.UpdateVehicle(ctx, v.ID, fuel.VehicleInput{Name: "Stihl MS 271", Registration: "PILA-2"})
	require.NoError(t, err)
	assert.Equal(t, "Stihl MS 271", updated.Name)
	assert.Nil(t, updated.SectorID)
	assert.Equal(t, fuel.FuelDiesel, updated.FuelType)

	list, err := fleet.ListVehicles(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Agregat", list[0].Name, "ordered by name")

	require.NoError(t, fleet.DeleteVehicle(ctx, v.ID))
	list, err = fleet.ListVehicles(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := fleet.GetVehicle(ctx, v.ID)
	require.NoError(t, err, "soft-deleted vehicles stay resolvable")
	assert.False(t, got.IsActive)

	_, err = fleet.GetVehicle(ctx, 999)
	assert.ErrorIs(t, err, fuel.ErrVehicleNotFound)
}

func TestFleet_Sectors(t *testing.T) {
	fleet := fuel.NewFleet(store.NewMemory())
	ctx := context.Background()

	_, err := fleet.CreateSector(ctx, "", "")
	assert.ErrorIs(t, err, fuel.ErrInvalidInput)

	s, err := fleet.CreateSector(ctx, "Voćarstvo", "")
	require.NoError(t, err)
	_, err = fleet.CreateSector(ctx, "Ratarstvo", "")
	require.NoError(t, err)

	renamed, err := fleet.UpdateSector(ctx, s.ID, "Vinogradarstvo", "Vinograd")
	require.NoError(t, err)
	assert.Equal(t, "Vinograd", renamed.Description)

	sectors, err := fleet.ListSectors(ctx, true)
	require.NoError(t, err)
	require.Len(t, sectors, 2)
	assert.Equal(t, "Ratarstvo", sectors[0].Name)

	require.NoError(t, fleet.DeleteSector(ctx, s.ID))
	sectors, err = fleet.ListSectors(ctx, true)
	require.NoError(t, err)
	assert.Len(t, sectors, 1)

	assert.ErrorIs(t, fleet.DeleteSector(ctx, 999), fuel.ErrSectorNotFound)
}
