package types

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

// PortTable holds the virtual ports of an entity together with the mapping
// that steers traffic leaving each port
type PortTable struct {
	ports map[int]*vport.Port
	next  map[int]*vport.Mapping
}

func (t *PortTable) attach(port *vport.Port, next *vport.Mapping) error {
	if err := port.Validate(); err != nil {
		return err
	}
	if t.ports == nil {
		t.ports = make(map[int]*vport.Port)
		t.next = make(map[int]*vport.Mapping)
	}
	if _, ok := t.ports[port.VirtualPortID()]; ok {
		return fmt.Errorf("%w: virtual port %d", ErrPortExists, port.VirtualPortID())
	}
	t.ports[port.VirtualPortID()] = port
	t.next[port.VirtualPortID()] = next
	return nil
}

// Ports returns every port ordered by virtual port id
func (t *PortTable) Ports() []*vport.Port {
	ports := lo.Values(t.ports)
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].VirtualPortID() < ports[j].VirtualPortID()
	})
	return ports
}

// Port returns the port with the given virtual port id
func (t *PortTable) Port(id int) (*vport.Port, error) {
	port, ok := t.ports[id]
	if !ok {
		return nil, fmt.Errorf("%w: virtual port %d", ErrPortNotFound, id)
	}
	return port, nil
}

// Next returns the mapping of traffic leaving the given port
func (t *PortTable) Next(id int) (*vport.Mapping, error) {
	next, ok := t.next[id]
	if !ok {
		return nil, fmt.Errorf("%w: virtual port %d", ErrPortNotFound, id)
	}
	return next, nil
}

// DetachPort clears the mapping of the port and drops it
func (t *PortTable) DetachPort(ctx context.Context, id int) error {
	next, ok := t.next[id]
	if !ok {
		return nil
	}
	err := next.Clear(ctx)
	delete(t.ports, id)
	delete(t.next, id)
	return err
}

// Destroy detaches every port
func (t *PortTable) Destroy(ctx context.Context) error {
	var result *multierror.Error
	for _, id := range lo.Keys(t.ports) {
		if err := t.DetachPort(ctx, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
