package types

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Tenant groups the LVAPs and LVNFs of a network slice
type Tenant struct {
	ID   uuid.UUID
	Name string

	lvaps map[string]*LVAP
	lvnfs map[string]*LVNF
}

// NewTenant creates an empty tenant
func NewTenant(id uuid.UUID, name string) *Tenant {
	return &Tenant{
		ID:    id,
		Name:  name,
		lvaps: make(map[string]*LVAP),
		lvnfs: make(map[string]*LVNF),
	}
}

// AddLVAP registers an LVAP, replacing any LVAP with the same address
func (t *Tenant) AddLVAP(lvap *LVAP) {
	t.lvaps[lvap.Addr.String()] = lvap
}

// LVAP looks up an LVAP by address
func (t *Tenant) LVAP(addr net.HardwareAddr) (*LVAP, error) {
	lvap, ok := t.lvaps[addr.String()]
	if !ok {
		return nil, fmt.Errorf("%w: LVAP %s in tenant %s", ErrEntityNotFound, addr, t.ID)
	}
	return lvap, nil
}

// LVAPs returns the LVAPs sorted by address
func (t *Tenant) LVAPs() []*LVAP {
	lvaps := lo.Values(t.lvaps)
	sort.Slice(lvaps, func(i, j int) bool {
		return lvaps[i].Addr.String() < lvaps[j].Addr.String()
	})
	return lvaps
}

// RemoveLVAP destroys the LVAP, withdrawing the intents of all its ports
func (t *Tenant) RemoveLVAP(ctx context.Context, addr net.HardwareAddr) error {
	lvap, ok := t.lvaps[addr.String()]
	if !ok {
		return nil
	}
	delete(t.lvaps, addr.String())
	return lvap.Destroy(ctx)
}

// AddLVNF registers an LVNF, replacing any LVNF with the same address
func (t *Tenant) AddLVNF(lvnf *LVNF) {
	t.lvnfs[lvnf.Addr.String()] = lvnf
}

// LVNF looks up an LVNF by address
func (t *Tenant) LVNF(addr net.HardwareAddr) (*LVNF, error) {
	lvnf, ok := t.lvnfs[addr.String()]
	if !ok {
		return nil, fmt.Errorf("%w: LVNF %s in tenant %s", ErrEntityNotFound, addr, t.ID)
	}
	return lvnf, nil
}

// LVNFs returns the LVNFs sorted by address
func (t *Tenant) LVNFs() []*LVNF {
	lvnfs := lo.Values(t.lvnfs)
	sort.Slice(lvnfs, func(i, j int) bool {
		return lvnfs[i].Addr.String() < lvnfs[j].Addr.String()
	})
	return lvnfs
}

// RemoveLVNF destroys the LVNF, withdrawing the intents of all its ports
func (t *Tenant) RemoveLVNF(ctx context.Context, addr net.HardwareAddr) error {
	lvnf, ok := t.lvnfs[addr.String()]
	if !ok {
		return nil
	}
	delete(t.lvnfs, addr.String())
	return lvnf.Destroy(ctx)
}
