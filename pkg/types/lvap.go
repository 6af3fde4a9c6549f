package types

import (
	"fmt"
	"net"

	"github.com/ovs-container-lab/vport-intents/pkg/intent"
	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

// LVAP is a per-client virtual access point
type LVAP struct {
	PortTable

	Addr     net.HardwareAddr // Client address
	Encap    net.HardwareAddr // Tunnel address, nil or zero when traffic is not encapsulated
	SSID     string           // Network the client is associated to
	Downlink BlockSet         // Blocks serving downlink traffic
	Uplink   BlockSet         // Blocks serving uplink traffic

	intents intent.Service
}

var _ vport.EncapOwner = (*LVAP)(nil)

// NewLVAP creates an LVAP whose port mappings issue intents through svc
func NewLVAP(addr, encap net.HardwareAddr, svc intent.Service) *LVAP {
	return &LVAP{
		Addr:    addr,
		Encap:   encap,
		intents: svc,
	}
}

// AddPort attaches a virtual port. Assignments made on the returned mapping
// follow the encapsulation redirection rule.
func (l *LVAP) AddPort(port *vport.Port, opts ...vport.Option) (*vport.Mapping, error) {
	next := vport.NewMapping(l.intents, vport.EncapRedirect{Owner: l}, opts...)
	if err := l.attach(port, next); err != nil {
		return nil, fmt.Errorf("failed to add port to LVAP %s: %w", l.Addr, err)
	}
	return next, nil
}

// HWAddr implements vport.EncapOwner
func (l *LVAP) HWAddr() net.HardwareAddr { return l.Addr }

// EncapAddr implements vport.EncapOwner
func (l *LVAP) EncapAddr() net.HardwareAddr { return l.Encap }

// DownlinkPorts implements vport.EncapOwner
func (l *LVAP) DownlinkPorts() []vport.SwitchPort { return l.Downlink.switchPorts() }

// UplinkPorts implements vport.EncapOwner
func (l *LVAP) UplinkPorts() []vport.SwitchPort { return l.Uplink.switchPorts() }

func (l *LVAP) String() string {
	return fmt.Sprintf("LVAP %s encap %s ssid %q", l.Addr, l.Encap, l.SSID)
}
