package controller

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ovs-container-lab/vport-intents/pkg/config"
	"github.com/ovs-container-lab/vport-intents/pkg/intent"
	"github.com/ovs-container-lab/vport-intents/pkg/types"
	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

// OVS is the part of the switch client the controller depends on
type OVS interface {
	EnsureBridge(bridge string) error
	AddPort(bridge, port string, externalIDs map[string]string) (bool, error)
	DeletePort(bridge, port string) error
	VirtualPort(bridge, iface string, virtualPortID int) (*vport.Port, error)
}

// Controller owns the tenants of a topology and serializes every change to
// their port mappings
type Controller struct {
	sync.Mutex
	tenants  map[uuid.UUID]*types.Tenant
	intents  intent.Service
	journal  vport.Journal
	ovs      OVS
	bridge   string
	attached []string
	readOnly bool
	logger   *logrus.Logger
}

// Option configures a Controller
type Option func(*Controller)

// ResolveOnly makes Build look up LVNF interfaces without attaching them,
// leaving the switch untouched
func ResolveOnly() Option {
	return func(c *Controller) {
		c.readOnly = true
	}
}

// New creates a controller. journal may be nil.
func New(svc intent.Service, journal vport.Journal, ovsClient OVS, bridge string, opts ...Option) *Controller {
	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	c := &Controller{
		tenants: make(map[uuid.UUID]*types.Tenant),
		intents: svc,
		journal: journal,
		ovs:     ovsClient,
		bridge:  bridge,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build creates the tenants of topo with their ports. No intents are issued.
func (c *Controller) Build(topo *config.Topology) error {
	if err := topo.Validate(); err != nil {
		return fmt.Errorf("invalid topology: %w", err)
	}

	c.Lock()
	defer c.Unlock()

	for _, spec := range topo.Tenants {
		if err := c.buildTenant(spec); err != nil {
			return err
		}
	}
	return nil
}

// Apply builds topo and installs its links
func (c *Controller) Apply(ctx context.Context, topo *config.Topology) error {
	if err := c.Build(topo); err != nil {
		return err
	}

	for _, spec := range topo.Tenants {
		tenantID := uuid.MustParse(spec.ID)
		for _, link := range spec.Links {
			lvapAddr, _ := net.ParseMAC(link.LVAP)
			lvnfAddr, _ := net.ParseMAC(link.LVNF)
			if err := c.Link(ctx, tenantID, lvapAddr, link.Port, link.Match, lvnfAddr, link.LVNFPort); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) buildTenant(spec config.TenantSpec) error {
	id := uuid.MustParse(spec.ID)
	if _, ok := c.tenants[id]; ok {
		return fmt.Errorf("tenant %s already exists", id)
	}
	tenant := types.NewTenant(id, spec.Name)

	radios := make(map[string]*types.Radio)
	for _, r := range spec.Radios {
		addr, _ := net.ParseMAC(r.Addr)
		radios[addr.String()] = &types.Radio{
			Addr: addr,
			Name: r.Name,
			Port: vport.SwitchPort{DPID: r.DPID, PortID: r.Port},
		}
	}

	for _, l := range spec.LVAPs {
		lvap, err := c.buildLVAP(tenant, l, radios)
		if err != nil {
			return err
		}
		tenant.AddLVAP(lvap)
	}

	for _, n := range spec.LVNFs {
		lvnf, err := c.buildLVNF(tenant, n)
		if err != nil {
			return err
		}
		tenant.AddLVNF(lvnf)
	}

	c.tenants[id] = tenant
	c.logger.Infof("Created tenant %s (%s) with %d LVAPs and %d LVNFs",
		tenant.Name, tenant.ID, len(spec.LVAPs), len(spec.LVNFs))
	return nil
}

func (c *Controller) buildLVAP(tenant *types.Tenant, spec config.LVAPSpec, radios map[string]*types.Radio) (*types.LVAP, error) {
	addr, _ := net.ParseMAC(spec.Addr)
	var encap net.HardwareAddr
	if spec.Encap != "" {
		encap, _ = net.ParseMAC(spec.Encap)
	}

	lvap := types.NewLVAP(addr, encap, c.intents)
	lvap.SSID = spec.SSID
	for _, b := range spec.Downlink {
		lvap.Downlink.Add(block(radios, b))
	}
	for _, b := range spec.Uplink {
		lvap.Uplink.Add(block(radios, b))
	}

	// The LVAP port sits on the switch port of the radio serving the client
	blocks := append(lvap.Downlink.Blocks(), lvap.Uplink.Blocks()...)
	if len(blocks) == 0 {
		c.logger.Warnf("LVAP %s has no resource blocks, not creating a port", addr)
		return lvap, nil
	}
	radio := blocks[0].Radio
	port := vport.NewPort(radio.Port.DPID, radio.Port.PortID, 0, addr, radio.Name)

	owner := fmt.Sprintf("%s/lvap/%s/%d", tenant.ID, addr, port.VirtualPortID())
	if _, err := lvap.AddPort(port, c.mappingOptions(owner)...); err != nil {
		return nil, err
	}
	return lvap, nil
}

func (c *Controller) buildLVNF(tenant *types.Tenant, spec config.LVNFSpec) (*types.LVNF, error) {
	addr, _ := net.ParseMAC(spec.Addr)
	lvnf := types.NewLVNF(addr, spec.CPP, c.intents)
	lvnf.Name = spec.Name

	for _, p := range spec.Ports {
		if p.Attach && !c.readOnly {
			if err := c.attach(tenant, lvnf, p); err != nil {
				return nil, err
			}
		}

		port, err := c.ovs.VirtualPort(c.bridge, p.Iface, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve port %d of LVNF %s: %w", p.ID, addr, err)
		}

		owner := fmt.Sprintf("%s/lvnf/%s/%d", tenant.ID, addr, p.ID)
		if _, err := lvnf.AddPort(port, c.mappingOptions(owner)...); err != nil {
			return nil, err
		}
		c.logger.Debugf("LVNF %s: %s", addr, port)
	}
	return lvnf, nil
}

func (c *Controller) attach(tenant *types.Tenant, lvnf *types.LVNF, p config.LVNFPortSpec) error {
	if err := c.ovs.EnsureBridge(c.bridge); err != nil {
		return fmt.Errorf("failed to ensure bridge %s: %w", c.bridge, err)
	}

	externalIDs := map[string]string{
		"tenant_id":       tenant.ID.String(),
		"lvnf":            lvnf.Addr.String(),
		"virtual_port_id": fmt.Sprintf("%d", p.ID),
	}
	created, err := c.ovs.AddPort(c.bridge, p.Iface, externalIDs)
	if err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", p.Iface, c.bridge, err)
	}
	// Interfaces found on the bridge belong to someone else and stay there on teardown
	if created {
		c.attached = append(c.attached, p.Iface)
	}
	return nil
}

func (c *Controller) mappingOptions(owner string) []vport.Option {
	opts := []vport.Option{
		vport.WithLogger(c.logger.WithField("owner", owner)),
	}
	if c.journal != nil {
		opts = append(opts, vport.WithJournal(owner, c.journal))
	}
	return opts
}

// Link steers traffic matching key that leaves port portID of an LVAP to
// port lvnfPort of an LVNF
func (c *Controller) Link(ctx context.Context, tenantID uuid.UUID, lvapAddr net.HardwareAddr, portID int,
	key string, lvnfAddr net.HardwareAddr, lvnfPort int) error {
	c.Lock()
	defer c.Unlock()

	tenant, err := c.tenant(tenantID)
	if err != nil {
		return err
	}
	lvap, err := tenant.LVAP(lvapAddr)
	if err != nil {
		return err
	}
	lvnf, err := tenant.LVNF(lvnfAddr)
	if err != nil {
		return err
	}
	next, err := lvap.Next(portID)
	if err != nil {
		return fmt.Errorf("LVAP %s: %w", lvapAddr, err)
	}
	target, err := lvnf.Port(lvnfPort)
	if err != nil {
		return fmt.Errorf("LVNF %s: %w", lvnfAddr, err)
	}

	if err := next.Set(ctx, key, target); err != nil {
		return fmt.Errorf("failed to link LVAP %s port %d to LVNF %s port %d: %w",
			lvapAddr, portID, lvnfAddr, lvnfPort, err)
	}
	c.logger.Infof("Linked LVAP %s port %d [%s] to LVNF %s port %d", lvapAddr, portID, key, lvnfAddr, lvnfPort)
	return nil
}

// Unlink removes the entry for key from the mapping of an LVAP port
func (c *Controller) Unlink(ctx context.Context, tenantID uuid.UUID, lvapAddr net.HardwareAddr, portID int, key string) error {
	c.Lock()
	defer c.Unlock()

	tenant, err := c.tenant(tenantID)
	if err != nil {
		return err
	}
	lvap, err := tenant.LVAP(lvapAddr)
	if err != nil {
		return err
	}
	next, err := lvap.Next(portID)
	if err != nil {
		return fmt.Errorf("LVAP %s: %w", lvapAddr, err)
	}
	return next.Remove(ctx, key)
}

// Tenant returns the tenant with the given id
func (c *Controller) Tenant(id uuid.UUID) (*types.Tenant, error) {
	c.Lock()
	defer c.Unlock()
	return c.tenant(id)
}

func (c *Controller) tenant(id uuid.UUID) (*types.Tenant, error) {
	tenant, ok := c.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %s", types.ErrEntityNotFound, id)
	}
	return tenant, nil
}

// Tenants returns every tenant sorted by id
func (c *Controller) Tenants() []*types.Tenant {
	c.Lock()
	defer c.Unlock()

	tenants := lo.Values(c.tenants)
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].ID.String() < tenants[j].ID.String()
	})
	return tenants
}

// Teardown destroys every tenant, withdrawing all intents, and detaches the
// interfaces Build added to the bridge
func (c *Controller) Teardown(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	var result *multierror.Error
	for id, tenant := range c.tenants {
		for _, lvap := range tenant.LVAPs() {
			if err := tenant.RemoveLVAP(ctx, lvap.Addr); err != nil {
				result = multierror.Append(result, err)
			}
		}
		for _, lvnf := range tenant.LVNFs() {
			if err := tenant.RemoveLVNF(ctx, lvnf.Addr); err != nil {
				result = multierror.Append(result, err)
			}
		}
		delete(c.tenants, id)
	}

	for _, iface := range c.attached {
		if err := c.ovs.DeletePort(c.bridge, iface); err != nil {
			c.logger.WithError(err).Warnf("Failed to detach %s", iface)
		}
	}
	c.attached = nil

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("teardown incomplete: %w", err)
	}
	c.logger.Info("Teardown complete")
	return nil
}

func block(radios map[string]*types.Radio, spec config.BlockSpec) *types.ResourceBlock {
	addr, _ := net.ParseMAC(spec.Radio)
	return &types.ResourceBlock{
		Radio:   radios[addr.String()],
		Channel: spec.Channel,
		Band:    spec.Band,
	}
}
