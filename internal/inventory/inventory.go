// Package inventory loads the managed host fleet from a YAML file: hosts with
// their connection details, group membership, and per-host facts, plus
// cluster-wide variables.
package inventory

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/cephops/internal/facts"
)

// DefaultCluster is the cluster name when the inventory does not set one.
const DefaultCluster = "ceph"

// Inventory holds the hosts to manage and cluster-wide variables.
type Inventory struct {
	Cluster string            `yaml:"cluster,omitempty"`
	Vars    map[string]string `yaml:"vars,omitempty"`
	Hosts   []Host            `yaml:"hosts"`
}

// Host represents one machine in the inventory.
type Host struct {
	Name     string            `yaml:"name"`
	FQDN     string            `yaml:"fqdn,omitempty"`
	Addr     string            `yaml:"addr,omitempty"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	KeyPath  string            `yaml:"key_path,omitempty"` // Optional SSH key path
	Groups   []string          `yaml:"groups,omitempty"`
	Facts    map[string]string `yaml:"facts,omitempty"`
}

// InGroup reports whether the host is a member of the named group.
func (h Host) InGroup(group string) bool {
	return slices.Contains(h.Groups, group)
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid inventory %s: %w", path, err)
	}
	return &inv, nil
}

// Validate checks host names for presence and uniqueness and applies the
// default cluster name.
func (inv *Inventory) Validate() error {
	if inv.Cluster == "" {
		inv.Cluster = DefaultCluster
	}
	if len(inv.Hosts) == 0 {
		return fmt.Errorf("no hosts defined")
	}

	seen := make(map[string]struct{}, len(inv.Hosts))
	for i, h := range inv.Hosts {
		if h.Name == "" {
			return fmt.Errorf("host %d: name is required", i)
		}
		if _, dup := seen[h.Name]; dup {
			return fmt.Errorf("duplicate host name %q", h.Name)
		}
		seen[h.Name] = struct{}{}
	}
	return nil
}

// Group returns the hosts belonging to the named group, in declaration order.
// An empty group name selects all hosts.
func (inv *Inventory) Group(name string) []Host {
	if name == "" {
		return slices.Clone(inv.Hosts)
	}
	var out []Host
	for _, h := range inv.Hosts {
		if h.InGroup(name) {
			out = append(out, h)
		}
	}
	return out
}

// HostByName looks up a host by its inventory name.
func (inv *Inventory) HostByName(name string) (Host, bool) {
	for _, h := range inv.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// FactsFor builds the fact view for one host: cluster vars overlaid by
// reserved keys derived from the host record, overlaid by the host's own
// facts.
func (inv *Inventory) FactsFor(h Host) facts.View {
	fqdn := h.FQDN
	if fqdn == "" {
		fqdn = h.Name
	}
	addr := h.Addr
	if addr == "" {
		addr = fqdn
	}
	derived := map[string]string{
		facts.KeyCluster:  inv.Cluster,
		facts.KeyHostname: h.Name,
		facts.KeyFQDN:     fqdn,
		facts.KeyHostIP:   addr,
	}
	return facts.New(inv.Vars, derived, h.Facts)
}
