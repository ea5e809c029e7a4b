// Package store provides an in-memory fuel.TxStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a mutex-guarded store. WithTx holds the lock for the whole
// callback and restores a snapshot if the callback fails, so transactions
// are serialised and all-or-nothing.
type Memory struct {
	mu sync.Mutex
	st *state
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{st: newState()}
}

type state struct {
	seq          int64
	containers   map[int64]fuel.Container
	additions    []fuel.Addition
	transactions map[int64]fuel.Transaction
	vehicles     map[int64]fuel.Vehicle
	vehicleTypes map[int64]fuel.VehicleType
	sectors      map[int64]fuel.Sector
	users        map[int64]auth.User
}

func newState() *state {
	return &state{
		containers:   make(map[int64]fuel.Container),
		transactions: make(map[int64]fuel.Transaction),
		vehicles:     make(map[int64]fuel.Vehicle),
		vehicleTypes: make(map[int64]fuel.VehicleType),
		sectors:      make(map[int64]fuel.Sector),
		users:        make(map[int64]auth.User),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := &state{
		seq:          s.seq,
		containers:   make(map[int64]fuel.Container, len(s.containers)),
		additions:    append([]fuel.Addition(nil), s.additions...),
		transactions: make(map[int64]fuel.Transaction, len(s.transactions)),
		vehicles:     make(map[int64]fuel.Vehicle, len(s.vehicles)),
		vehicleTypes: make(map[int64]fuel.VehicleType, len(s.vehicleTypes)),
		sectors:      make(map[int64]fuel.Sector, len(s.sectors)),
		users:        make(map[int64]auth.User, len(s.users)),
	}
	for k, v := range s.containers {
		c.containers[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range s.vehicleTypes {
		c.vehicleTypes[k] = v
	}
	for k, v := range s.sectors {
		c.sectors[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(fuel.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// =============================================================================
// CONTAINERS
// =============================================================================

func (s *state) InsertContainer(_ context.Context, c *fuel.Container) error {
	c.ID = s.nextID()
	s.containers[c.ID] = *c
	return nil
}

func (s *state) GetContainer(_ context.Context, id int64) (*fuel.Container, error) {
	c, ok := s.containers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// GetContainerForUpdate needs no row lock: WithTx holds the store mutex.
func (s *state) GetContainerForUpdate(ctx context.Context, id int64) (*fuel.Container, error) {
	return s.GetContainer(ctx, id)
}

func (s *state) ListContainers(_ context.Context, activeOnly bool) ([]fuel.Container, error) {
	out := []fuel.Container{}
	for _, c := range s.containers {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *state) UpdateContainer(_ context.Context, c *fuel.Container) error {
	if _, ok := s.containers[c.ID]; !ok {
		return fmt.Errorf("container %d: %w", c.ID, fuel.ErrContainerNotFound)
	}
	s.containers[c.ID] = *c
	return nil
}

func (s *state) AdjustLevel(_ context.Context, id int64, delta decimal.Decimal) error {
	c, ok := s.containers[id]
	if !ok {
		return fmt.Errorf("container %d: %w", id, fuel.ErrContainerNotFound)
	}
	c.CurrentLevel = c.CurrentLevel.Add(delta)
	s.containers[id] = c
	return nil
}

func (s *state) DecrementLevel(_ context.Context, id int64, qty decimal.Decimal) (bool, error) {
	c, ok := s.containers[id]
	if !ok || c.CurrentLevel.LessThan(qty) {
		return false, nil
	}
	c.CurrentLevel = c.CurrentLevel.Sub(qty)
	s.containers[id] = c
	return true, nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *state) InsertAddition(_ context.Context, a *fuel.Addition) error {
	a.ID = s.nextID()
	s.additions = append(s.additions, *a)
	return nil
}

func (s *state) LatestAddition(_ context.Context, containerID int64) (*fuel.Addition, error) {
	var latest *fuel.Addition
	for i := range s.additions {
		a := s.additions[i]
		if a.ContainerID != containerID {
			continue
		}
		if latest == nil || a.AddedAt.After(latest.AddedAt) ||
			(a.AddedAt.Equal(latest.AddedAt) && a.ID > latest.ID) {
			latest = &a
		}
	}
	return latest, nil
}

func (s *state) ListAdditions(_ context.Context, f fuel.AdditionFilter) ([]fuel.Addition, error) {
	out := []fuel.Addition{}
	for _, a := range s.additions {
		if f.ContainerID != nil && a.ContainerID != *f.ContainerID {
			continue
		}
		if !f.Range.Contains(a.AddedAt) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *state) InsertTransaction(_ context.Context, t *fuel.Transaction) error {
	t.ID = s.nextID()
	s.transactions[t.ID] = *t
	return nil
}

func (s *state) GetTransaction(_ context.Context, id int64) (*fuel.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *state) DeleteTransaction(_ context.Context, id int64) error {
	delete(s.transactions, id)
	return nil
}

func (s *state) ListTransactions(_ context.Context, f fuel.TransactionFilter) ([]fuel.Transaction, error) {
	out := []fuel.Transaction{}
	for _, t := range s.transactions {
		if f.ContainerID != nil && t.ContainerID != *f.ContainerID {
			continue
		}
		if f.VehicleID != nil && t.VehicleID != *f.VehicleID {
			continue
		}
		if !f.Range.Contains(t.TransactionAt) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionAt.Equal(out[j].TransactionAt) {
			return out[i].TransactionAt.After(out[j].TransactionAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (s *state) InsertVehicle(_ context.Context, v *fuel.Vehicle) error {
	v.ID = s.nextID()
	s.vehicles[v.ID] = *v
	return nil
}

func (s *state) GetVehicle(_ context.Context, id int64) (*fuel.Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *state) ListVehicles(_ context.Context, activeOnly bool) ([]fuel.Vehicle, error) {
	out := []fuel.Vehicle{}
	for _, v := range s.vehicles {
		if activeOnly && !v.IsActive {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) UpdateVehicle(_ context.Context, v *fuel.Vehicle) error {
	if _, ok := s.vehicles[v.ID]; !ok {
		return fmt.Errorf("vehicle %d: %w", v.ID, fuel.ErrVehicleNotFound)
	}
	s.vehicles[v.ID] = *v
	return nil
}

func (s *state) InsertVehicleType(_ context.Context, vt *fuel.VehicleType) error {
	vt.ID = s.nextID()
	s.vehicleTypes[vt.ID] = *vt
	return nil
}

func (s *state) GetVehicleType(_ context.Context, id int64) (*fuel.VehicleType, error) {
	vt, ok := s.vehicleTypes[id]
	if !ok {
		return nil, nil
	}
	return &vt, nil
}

func (s *state) ListVehicleTypes(_ context.Context, activeOnly bool) ([]fuel.VehicleType, error) {
	out := []fuel.VehicleType{}
	for _, vt := range s.vehicleTypes {
		if activeOnly && !vt.IsActive {
			continue
		}
		out = append(out, vt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) UpdateVehicleType(_ context.Context, vt *fuel.VehicleType) error {
	if _, ok := s.vehicleTypes[vt.ID]; !ok {
		return fmt.Errorf("vehicle type %d: %w", vt.ID, fuel.ErrVehicleTypeNotFound)
	}
	s.vehicleTypes[vt.ID] = *vt
	return nil
}

func (s *state) InsertSector(_ context.Context, sec *fuel.Sector) error {
	sec.ID = s.nextID()
	s.sectors[sec.ID] = *sec
	return nil
}

func (s *state) GetSector(_ context.Context, id int64) (*fuel.Sector, error) {
	sec, ok := s.sectors[id]
	if !ok {
		return nil, nil
	}
	return &sec, nil
}

func (s *state) ListSectors(_ context.Context, activeOnly bool) ([]fuel.Sector, error) {
	out := []fuel.Sector{}
	for _, sec := range s.sectors {
		if activeOnly && !sec.IsActive {
			continue
		}
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) UpdateSector(_ context.Context, sec *fuel.Sector) error {
	if _, ok := s.sectors[sec.ID]; !ok {
		return fmt.Errorf("sector %d: %w", sec.ID, fuel.ErrSectorNotFound)
	}
	s.sectors[sec.ID] = *sec
	return nil
}

// =============================================================================
// USERS (auth.UserStore)
// =============================================================================

func (s *state) GetUserByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *state) InsertUser(_ context.Context, u *auth.User) error {
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return auth.ErrUserExists
		}
	}
	u.ID = s.nextID()
	s.users[u.ID] = *u
	return nil
}

// =============================================================================
// LOCKED ACCESSORS - Memory implements fuel.TxStore and auth.UserStore
// =============================================================================

func (m *Memory) InsertContainer(ctx context.Context, c *fuel.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertContainer(ctx, c)
}

func (m *Memory) GetContainer(ctx context.Context, id int64) (*fuel.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetContainer(ctx, id)
}

func (m *Memory) GetContainerForUpdate(ctx context.Context, id int64) (*fuel.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetContainerForUpdate(ctx, id)
}

func (m *Memory) ListContainers(ctx context.Context, activeOnly bool) ([]fuel.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListContainers(ctx, activeOnly)
}

func (m *Memory) UpdateContainer(ctx context.Context, c *fuel.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateContainer(ctx, c)
}

func (m *Memory) AdjustLevel(ctx context.Context, id int64, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AdjustLevel(ctx, id, delta)
}

func (m *Memory) DecrementLevel(ctx context.Context, id int64, qty decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DecrementLevel(ctx, id, qty)
}

func (m *Memory) InsertAddition(ctx context.Context, a *fuel.Addition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertAddition(ctx, a)
}

func (m *Memory) LatestAddition(ctx context.Context, containerID int64) (*fuel.Addition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.LatestAddition(ctx, containerID)
}

func (m *Memory) ListAdditions(ctx context.Context, f fuel.AdditionFilter) ([]fuel.Addition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListAdditions(ctx, f)
}

func (m *Memory) InsertTransaction(ctx context.Context, t *fuel.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertTransaction(ctx, t)
}

func (m *Memory) GetTransaction(ctx context.Context, id int64) (*fuel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetTransaction(ctx, id)
}

func (m *Memory) DeleteTransaction(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteTransaction(ctx, id)
}

func (m *Memory) ListTransactions(ctx context.Context, f fuel.TransactionFilter) ([]fuel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListTransactions(ctx, f)
}

func (m *Memory) InsertVehicle(ctx context.Context, v *fuel.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertVehicle(ctx, v)
}

func (m *Memory) GetVehicle(ctx context.Context, id int64) (*fuel.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetVehicle(ctx, id)
}

func (m *Memory) ListVehicles(ctx context.Context, activeOnly bool) ([]fuel.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListVehicles(ctx, activeOnly)
}

func (m *Memory) UpdateVehicle(ctx context.Context, v *fuel.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateVehicle(ctx, v)
}

func (m *Memory) InsertVehicleType(ctx context.Context, vt *fuel.VehicleType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertVehicleType(ctx, vt)
}

func (m *Memory) GetVehicleType(ctx context.Context, id int64) (*fuel.VehicleType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetVehicleType(ctx, id)
}

func (m *Memory) ListVehicleTypes(ctx context.Context, activeOnly bool) ([]fuel.VehicleType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListVehicleTypes(ctx, activeOnly)
}

func (m *Memory) UpdateVehicleType(ctx context.Context, vt *fuel.VehicleType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateVehicleType(ctx, vt)
}

func (m *Memory) InsertSector(ctx context.Context, s *fuel.Sector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertSector(ctx, s)
}

func (m *Memory) GetSector(ctx context.Context, id int64) (*fuel.Sector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetSector(ctx, id)
}

func (m *Memory) ListSectors(ctx context.Context, activeOnly bool) ([]fuel.Sector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListSectors(ctx, activeOnly)
}

func (m *Memory) UpdateSector(ctx context.Context, s *fuel.Sector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateSector(ctx, s)
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GetUserByUsername(ctx, username)
}

func (m *Memory) InsertUser(ctx context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertUser(ctx, u)
}

// Compile-time interface checks
var (
	_ fuel.TxStore   = (*Memory)(nil)
	_ fuel.Store     = (*state)(nil)
	_ auth.UserStore = (*Memory)(nil)
)
