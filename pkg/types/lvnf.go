package types

import (
	"fmt"
	"net"

	"github.com/ovs-container-lab/vport-intents/pkg/intent"
	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

// LVNF is a virtual network function running on a compute node
type LVNF struct {
	PortTable

	Addr net.HardwareAddr // Function address
	CPP  string           // Compute node hosting the function
	Name string

	intents intent.Service
}

// NewLVNF creates an LVNF whose port mappings issue intents through svc
func NewLVNF(addr net.HardwareAddr, cpp string, svc intent.Service) *LVNF {
	return &LVNF{
		Addr:    addr,
		CPP:     cpp,
		intents: svc,
	}
}

// AddPort attaches a virtual port with a plain mapping
func (n *LVNF) AddPort(port *vport.Port, opts ...vport.Option) (*vport.Mapping, error) {
	next := vport.NewMapping(n.intents, vport.NoRedirect{}, opts...)
	if err := n.attach(port, next); err != nil {
		return nil, fmt.Errorf("failed to add port to LVNF %s: %w", n.Addr, err)
	}
	return next, nil
}

func (n *LVNF) String() string {
	return fmt.Sprintf("LVNF %s (%s) on %s", n.Addr, n.Name, n.CPP)
}
