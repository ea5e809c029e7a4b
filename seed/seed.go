/*
Package seed bootstraps a fresh database from a YAML fixture.

PURPOSE:
  Inserts the admin user, baseline vehicle types, sectors and starter
  containers. Writes go straight to the store: a seeded container's
  level is its genesis balance, with no addition behind it.

IDEMPOTENCY:
  Rows are matched by name (username for the admin) and skipped if they
  already exist, so running the seed on every start is harmless.

FIXTURE:
  defaults.yaml is embedded and used when no file is configured.
*/
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
)

//go:embed defaults.yaml
var defaultFixture []byte

// Fixture is the seed file layout.
type Fixture struct {
	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"admin"`

	VehicleTypes []struct {
		Name   string `yaml:"name"`
		Icon   string `yaml:"icon"`
		System bool   `yaml:"system"`
	} `yaml:"vehicle_types"`

	Sectors []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"sectors"`

	Containers []struct {
		Name           string          `yaml:"name"`
		CapacityLiters decimal.Decimal `yaml:"capacity_liters"`
		CurrentLevel   decimal.Decimal `yaml:"current_level"`
		FuelType       string          `yaml:"fuel_type"`
		Location       string          `yaml:"location"`
	} `yaml:"containers"`
}

// Store is what seeding writes to.
type Store interface {
	fuel.Store
	auth.UserStore
}

// Result counts inserted rows.
type Result struct {
	Users        int
	VehicleTypes int
	Sectors      int
	Containers   int
}

// Default parses the embedded fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file; an empty path means the embedded default.
func Load(path string) (*Fixture, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse fixture: %w", err)
	}
	return &f, nil
}

// Run inserts everything in f that is not already present.
func Run(ctx context.Context, s Store, f *Fixture, log *slog.Logger) (Result, error) {
	var res Result
	now := time.Now().UTC()

	if f.Admin.Username != "" {
		_, err := auth.CreateUser(ctx, s, f.Admin.Username, f.Admin.Password, f.Admin.Name)
		switch {
		case errors.Is(err, auth.ErrUserExists):
		case err != nil:
			return res, fmt.Errorf("seed: admin user: %w", err)
		default:
			res.Users++
			log.Info("seeded user", "username", f.Admin.Username)
		}
	}

	types, err := s.ListVehicleTypes(ctx, false)
	if err != nil {
		return res, err
	}
	for _, vt := range f.VehicleTypes {
		if containsName(len(types), func(i int) string { return types[i].Name }, vt.Name) {
			continue
		}
		rec := &fuel.VehicleType{Name: vt.Name, Icon: vt.Icon, IsSystem: vt.System, IsActive: true, CreatedAt: now}
		if err := s.InsertVehicleType(ctx, rec); err != nil {
			return res, fmt.Errorf("seed: vehicle type %q: %w", vt.Name, err)
		}
		res.VehicleTypes++
	}

	sectors, err := s.ListSectors(ctx, false)
	if err != nil {
		return res, err
	}
	for _, sec := range f.Sectors {
		if containsName(len(sectors), func(i int) string { return sectors[i].Name }, sec.Name) {
			continue
		}
		rec := &fuel.Sector{Name: sec.Name, Description: sec.Description, IsActive: true, CreatedAt: now}
		if err := s.InsertSector(ctx, rec); err != nil {
			return res, fmt.Errorf("seed: sector %q: %w", sec.Name, err)
		}
		res.Sectors++
	}

	containers, err := s.ListContainers(ctx, false)
	if err != nil {
		return res, err
	}
	for _, c := range f.Containers {
		if containsName(len(containers), func(i int) string { return containers[i].Name }, c.Name) {
			continue
		}
		fuelType, err := fuel.ParseFuelType(c.FuelType)
		if err != nil {
			return res, fmt.Errorf("seed: container %q: %w", c.Name, err)
		}
		rec := &fuel.Container{
			Name:           c.Name,
			CapacityLiters: c.CapacityLiters,
			CurrentLevel:   c.CurrentLevel,
			InitialLevel:   c.CurrentLevel,
			FuelType:       fuelType,
			Location:       c.Location,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.InsertContainer(ctx, rec); err != nil {
			return res, fmt.Errorf("seed: container %q: %w", c.Name, err)
		}
		res.Containers++
	}

	log.Info("seed complete",
		"users", res.Users,
		"vehicle_types", res.VehicleTypes,
		"sectors", res.Sectors,
		"containers", res.Containers,
	)
	return res, nil
}

func containsName(n int, name func(int) string, want string) bool {
	for i := 0; i < n; i++ {
		if strings.EqualFold(name(i), want) {
			return true
		}
	}
	return false
}
