package vport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidValue is returned when something that is not a usable virtual
// port is assigned to a mapping
var ErrInvalidValue = errors.New("invalid virtual port")

// Port identifies where a logical traffic endpoint terminates on a datapath.
// Ports are immutable; identity is (dpid, ovs port, virtual port), the
// hardware address and interface name are descriptive only.
type Port struct {
	dpid          string
	ovsPortID     uint32
	virtualPortID int
	hwaddr        net.HardwareAddr
	iface         string
}

// NewPort creates a virtual port
func NewPort(dpid string, ovsPortID uint32, virtualPortID int, hwaddr net.HardwareAddr, iface string) *Port {
	return &Port{
		dpid:          dpid,
		ovsPortID:     ovsPortID,
		virtualPortID: virtualPortID,
		hwaddr:        append(net.HardwareAddr(nil), hwaddr...),
		iface:         iface,
	}
}

func (p *Port) DPID() string { return p.dpid }

func (p *Port) OVSPortID() uint32 { return p.ovsPortID }

func (p *Port) VirtualPortID() int { return p.virtualPortID }

func (p *Port) HWAddr() net.HardwareAddr { return append(net.HardwareAddr(nil), p.hwaddr...) }

func (p *Port) Iface() string { return p.iface }

// Equal reports whether both ports identify the same termination point
func (p *Port) Equal(other *Port) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.dpid == other.dpid &&
		p.ovsPortID == other.ovsPortID &&
		p.virtualPortID == other.virtualPortID
}

// Hash is consistent with Equal
func (p *Port) Hash() uint64 {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], p.ovsPortID)
	binary.BigEndian.PutUint64(buf[4:12], uint64(p.virtualPortID))

	d := xxhash.New()
	d.WriteString(p.dpid)
	d.Write([]byte{0})
	d.Write(buf[:])
	return d.Sum64()
}

// Validate checks that the port can be used as a mapping value
func (p *Port) Validate() error {
	if p == nil || p.dpid == "" {
		return fmt.Errorf("%w: missing datapath id", ErrInvalidValue)
	}
	return nil
}

func (p *Port) String() string {
	return fmt.Sprintf("%s ovs_port %d virtual_port %d hwaddr %s iface %s",
		p.dpid, p.ovsPortID, p.virtualPortID, p.hwaddr, p.iface)
}

type portJSON struct {
	DPID          string `json:"dpid"`
	OVSPortID     uint32 `json:"ovs_port_id"`
	VirtualPortID int    `json:"virtual_port_id"`
	HWAddr        string `json:"hwaddr"`
	Iface         string `json:"iface"`
}

// MarshalJSON implements json.Marshaler
func (p *Port) MarshalJSON() ([]byte, error) {
	return json.Marshal(portJSON{
		DPID:          p.dpid,
		OVSPortID:     p.ovsPortID,
		VirtualPortID: p.virtualPortID,
		HWAddr:        p.hwaddr.String(),
		Iface:         p.iface,
	})
}
