package vport

import (
	"bytes"
	"net"

	"github.com/ovs-container-lab/vport-intents/pkg/flowkey"
)

// SwitchPort is a switch-facing port of a radio
type SwitchPort struct {
	DPID   string
	PortID uint32
}

// Redirection replaces the caller's flow key: traffic matching Match is
// steered from every source port to the mapped virtual port
type Redirection struct {
	Match   flowkey.Match
	Sources []SwitchPort
}

// Policy decides whether assignments bypass the requested flow key
type Policy interface {
	Redirect() (*Redirection, bool)
}

// NoRedirect stores assignments under the requested key and issues no intents
type NoRedirect struct{}

// Redirect implements Policy
func (NoRedirect) Redirect() (*Redirection, bool) {
	return nil, false
}

// EncapOwner is the entity whose traffic may be link-layer encapsulated
type EncapOwner interface {
	HWAddr() net.HardwareAddr
	// EncapAddr returns nil or the zero address when traffic is not encapsulated
	EncapAddr() net.HardwareAddr
	DownlinkPorts() []SwitchPort
	UplinkPorts() []SwitchPort
}

// EncapRedirect is the LVAP policy. Encapsulated frames cannot be told apart
// by header matches on the switches, so all traffic of the owner is keyed on
// the tunnel endpoints (dl_src=owner, dl_dst=encap) and one intent is issued
// per serving radio port, downlink first.
type EncapRedirect struct {
	Owner EncapOwner
}

// Redirect implements Policy
func (p EncapRedirect) Redirect() (*Redirection, bool) {
	encap := p.Owner.EncapAddr()
	if isZeroAddr(encap) {
		return nil, false
	}

	sources := append([]SwitchPort{}, p.Owner.DownlinkPorts()...)
	sources = append(sources, p.Owner.UplinkPorts()...)

	return &Redirection{
		Match: flowkey.Match{
			flowkey.DLSrc: p.Owner.HWAddr().String(),
			flowkey.DLDst: encap.String(),
		},
		Sources: sources,
	}, true
}

func isZeroAddr(addr net.HardwareAddr) bool {
	return len(addr) == 0 || bytes.Equal(addr, make(net.HardwareAddr, len(addr)))
}
