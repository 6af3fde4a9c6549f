package types

import (
	"errors"
	"fmt"
	"net"

	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

var (
	// ErrEntityNotFound is returned when a tenant, LVAP or LVNF does not exist
	ErrEntityNotFound = errors.New("entity not found")
	// ErrPortNotFound is returned when an entity has no port with the requested id
	ErrPortNotFound = errors.New("port not found")
	// ErrPortExists is returned when a virtual port id is already in use on an entity
	ErrPortExists = errors.New("port already exists")
)

// Radio is a wireless termination point attached to a switch
type Radio struct {
	Addr net.HardwareAddr // Radio address
	Name string           // Human readable label
	Port vport.SwitchPort // Switch-facing port
}

func (r *Radio) String() string {
	return fmt.Sprintf("%s (%s)", r.Addr, r.Name)
}

// ResourceBlock is a unit of radio capacity serving a client
type ResourceBlock struct {
	Radio   *Radio
	Channel int
	Band    string
}

// SwitchPort returns the switch port through which the block is reachable
func (b *ResourceBlock) SwitchPort() vport.SwitchPort {
	return b.Radio.Port
}

func (b *ResourceBlock) String() string {
	if b.Radio == nil {
		return fmt.Sprintf("<no radio>/%d/%s", b.Channel, b.Band)
	}
	return fmt.Sprintf("%s/%d/%s", b.Radio.Addr, b.Channel, b.Band)
}

// BlockSet is a set of resource blocks that iterates in insertion order
type BlockSet struct {
	blocks []*ResourceBlock
}

// Add inserts b unless an equivalent block is already present. Blocks
// without a radio are not reachable through any switch port and are refused.
func (s *BlockSet) Add(b *ResourceBlock) bool {
	if b == nil || b.Radio == nil || s.index(b) >= 0 {
		return false
	}
	s.blocks = append(s.blocks, b)
	return true
}

// Remove deletes b, keeping the order of the remaining blocks
func (s *BlockSet) Remove(b *ResourceBlock) bool {
	if b == nil {
		return false
	}
	i := s.index(b)
	if i < 0 {
		return false
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	return true
}

// Blocks returns the blocks in insertion order
func (s *BlockSet) Blocks() []*ResourceBlock {
	return append([]*ResourceBlock(nil), s.blocks...)
}

// Len returns the number of blocks
func (s *BlockSet) Len() int {
	return len(s.blocks)
}

func (s *BlockSet) switchPorts() []vport.SwitchPort {
	ports := make([]vport.SwitchPort, 0, len(s.blocks))
	for _, b := range s.blocks {
		ports = append(ports, b.SwitchPort())
	}
	return ports
}

func (s *BlockSet) index(b *ResourceBlock) int {
	for i, cur := range s.blocks {
		if cur == b || cur.String() == b.String() {
			return i
		}
	}
	return -1
}
