package config

import (
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Topology describes the tenants to set up and the flows to steer
type Topology struct {
	Tenants []TenantSpec `yaml:"tenants"`
}

// TenantSpec describes a tenant
type TenantSpec struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Radios []RadioSpec `yaml:"radios"`
	LVAPs  []LVAPSpec  `yaml:"lvaps"`
	LVNFs  []LVNFSpec  `yaml:"lvnfs"`
	Links  []LinkSpec  `yaml:"links"`
}

// RadioSpec describes a radio and the switch port it is attached to
type RadioSpec struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name"`
	DPID string `yaml:"dpid"`
	Port uint32 `yaml:"port"`
}

// BlockSpec describes a resource block of a radio
type BlockSpec struct {
	Radio   string `yaml:"radio"`
	Channel int    `yaml:"channel"`
	Band    string `yaml:"band"`
}

// LVAPSpec describes an LVAP and the blocks serving it
type LVAPSpec struct {
	Addr     string      `yaml:"addr"`
	Encap    string      `yaml:"encap"`
	SSID     string      `yaml:"ssid"`
	Downlink []BlockSpec `yaml:"downlink"`
	Uplink   []BlockSpec `yaml:"uplink"`
}

// LVNFSpec describes an LVNF and its interfaces
type LVNFSpec struct {
	Addr  string         `yaml:"addr"`
	CPP   string         `yaml:"cpp"`
	Name  string         `yaml:"name"`
	Ports []LVNFPortSpec `yaml:"ports"`
}

// LVNFPortSpec maps an LVNF interface to a virtual port. With Attach set the
// interface is added to the bridge before it is resolved.
type LVNFPortSpec struct {
	ID     int    `yaml:"id"`
	Iface  string `yaml:"iface"`
	Attach bool   `yaml:"attach"`
}

// LinkSpec steers traffic matching Match leaving an LVAP port to an LVNF port
type LinkSpec struct {
	LVAP     string `yaml:"lvap"`
	Port     int    `yaml:"port"`
	Match    string `yaml:"match"`
	LVNF     string `yaml:"lvnf"`
	LVNFPort int    `yaml:"lvnf_port"`
}

// LoadTopology reads and validates a topology file
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology %s: %w", path, err)
	}
	return ParseTopology(data)
}

// ParseTopology decodes and validates a YAML topology
func ParseTopology(data []byte) (*Topology, error) {
	topo := &Topology{}
	if err := yaml.Unmarshal(data, topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return topo, nil
}

// Validate checks addresses and cross references
func (t *Topology) Validate() error {
	for _, tenant := range t.Tenants {
		if _, err := uuid.Parse(tenant.ID); err != nil {
			return fmt.Errorf("tenant %q: invalid id: %w", tenant.Name, err)
		}

		radios := make(map[string]bool)
		for _, radio := range tenant.Radios {
			if err := checkMAC(radio.Addr); err != nil {
				return fmt.Errorf("tenant %s: radio: %w", tenant.ID, err)
			}
			if radio.DPID == "" {
				return fmt.Errorf("tenant %s: radio %s: missing dpid", tenant.ID, radio.Addr)
			}
			radios[normalizeMAC(radio.Addr)] = true
		}

		lvaps := make(map[string]bool)
		for _, lvap := range tenant.LVAPs {
			if err := checkMAC(lvap.Addr); err != nil {
				return fmt.Errorf("tenant %s: lvap: %w", tenant.ID, err)
			}
			if lvap.Encap != "" {
				if err := checkMAC(lvap.Encap); err != nil {
					return fmt.Errorf("tenant %s: lvap %s encap: %w", tenant.ID, lvap.Addr, err)
				}
			}
			for _, block := range append(append([]BlockSpec{}, lvap.Downlink...), lvap.Uplink...) {
				if !radios[normalizeMAC(block.Radio)] {
					return fmt.Errorf("tenant %s: lvap %s: unknown radio %q", tenant.ID, lvap.Addr, block.Radio)
				}
			}
			lvaps[normalizeMAC(lvap.Addr)] = true
		}

		lvnfs := make(map[string]bool)
		for _, lvnf := range tenant.LVNFs {
			if err := checkMAC(lvnf.Addr); err != nil {
				return fmt.Errorf("tenant %s: lvnf: %w", tenant.ID, err)
			}
			for _, port := range lvnf.Ports {
				if port.Iface == "" {
					return fmt.Errorf("tenant %s: lvnf %s port %d: missing iface", tenant.ID, lvnf.Addr, port.ID)
				}
			}
			lvnfs[normalizeMAC(lvnf.Addr)] = true
		}

		for _, link := range tenant.Links {
			if !lvaps[normalizeMAC(link.LVAP)] {
				return fmt.Errorf("tenant %s: link: unknown lvap %q", tenant.ID, link.LVAP)
			}
			if !lvnfs[normalizeMAC(link.LVNF)] {
				return fmt.Errorf("tenant %s: link: unknown lvnf %q", tenant.ID, link.LVNF)
			}
		}
	}
	return nil
}

func checkMAC(s string) error {
	if _, err := net.ParseMAC(s); err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	return nil
}

func normalizeMAC(s string) string {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return s
	}
	return mac.String()
}
