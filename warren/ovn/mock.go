package ovn

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockSwitch is the in-memory logical switch record held by MockClient.
type MockSwitch struct {
	UUID   string
	Name   string
	Subnet string
	Ports  []string // attached port UUIDs
}

// MockPort is the in-memory logical switch port record held by MockClient.
type MockPort struct {
	UUID          string
	Name          string
	Addresses     string
	DHCPv4Options string
}

// MockDHCPOptions is the in-memory DHCP_Options record held by MockClient.
type MockDHCPOptions struct {
	UUID    string
	CIDR    string
	Options map[string]string
}

// MockClient implements Client with in-memory storage for testing. It is
// stricter than a real northbound server: duplicate creates and updates
// against missing rows fail instead of silently succeeding, which catches
// wiring mistakes in callers.
type MockClient struct {
	mu sync.Mutex

	switches map[string]*MockSwitch      // by name
	ports    map[string]*MockPort        // by name
	dhcp     map[string]*MockDHCPOptions // by cidr
}

// NewMockClient creates a MockClient for testing.
func NewMockClient() *MockClient {
	return &MockClient{
		switches: make(map[string]*MockSwitch),
		ports:    make(map[string]*MockPort),
		dhcp:     make(map[string]*MockDHCPOptions),
	}
}

func (m *MockClient) CreateL2Switch(_ context.Context, name, cidr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.switches[name]; exists {
		return fmt.Errorf("logical switch %q already exists", name)
	}
	m.switches[name] = &MockSwitch{
		UUID:   uuid.NewString(),
		Name:   name,
		Subnet: cidr,
	}
	return nil
}

func (m *MockClient) DeleteL2Switch(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.switches[name]; !exists {
		return fmt.Errorf("logical switch %q not found", name)
	}
	delete(m.switches, name)
	return nil
}

func (m *MockClient) AddLSPToLS(_ context.Context, portName, switchName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[switchName]
	if !exists {
		return "", fmt.Errorf("logical switch %q lookup: %w", switchName, ErrUUIDNotFound)
	}
	if _, exists := m.ports[portName]; exists {
		return "", fmt.Errorf("logical switch port %q already exists", portName)
	}
	port := &MockPort{
		UUID: uuid.NewString(),
		Name: portName,
	}
	m.ports[portName] = port
	ls.Ports = append(ls.Ports, port.UUID)
	return port.UUID, nil
}

func (m *MockClient) AddMACToLSP(_ context.Context, portUUID, mac string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	port := m.portByUUID(portUUID)
	if port == nil {
		return fmt.Errorf("logical switch port %s not found", portUUID)
	}
	port.Addresses = mac + " dynamic"
	return nil
}

func (m *MockClient) AddDHCPOptionsToLSP(_ context.Context, portUUID, optsUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	port := m.portByUUID(portUUID)
	if port == nil {
		return fmt.Errorf("logical switch port %s not found", portUUID)
	}
	port.DHCPv4Options = optsUUID
	return nil
}

func (m *MockClient) RemoveLSP(_ context.Context, portName, switchName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	port, exists := m.ports[portName]
	if !exists {
		return fmt.Errorf("logical switch port %q lookup: %w", portName, ErrUUIDNotFound)
	}
	ls, exists := m.switches[switchName]
	if !exists {
		return fmt.Errorf("logical switch %q lookup: %w", switchName, ErrUUIDNotFound)
	}
	for i, id := range ls.Ports {
		if id == port.UUID {
			ls.Ports = append(ls.Ports[:i], ls.Ports[i+1:]...)
			break
		}
	}
	// The server garbage-collects detached ports; the mock drops them
	// immediately.
	delete(m.ports, portName)
	return nil
}

func (m *MockClient) CreateDHCPv4Options(_ context.Context, cidr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.dhcp[cidr]; exists {
		return fmt.Errorf("dhcp options for cidr %q already exist", cidr)
	}
	routerIP := dhcpRouterIP(cidr)
	m.dhcp[cidr] = &MockDHCPOptions{
		UUID: uuid.NewString(),
		CIDR: cidr,
		Options: map[string]string{
			"lease_time": "3600",
			"router":     routerIP,
			"server_id":  routerIP,
			"server_mac": GenerateMAC(),
		},
	}
	return nil
}

func (m *MockClient) GetDHCPv4OptionsID(_ context.Context, cidr string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts, exists := m.dhcp[cidr]
	if !exists {
		return "", fmt.Errorf("dhcp options for cidr %q lookup: %w", cidr, ErrUUIDNotFound)
	}
	return opts.UUID, nil
}

func (m *MockClient) DeleteDHCPv4Options(_ context.Context, cidr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.dhcp[cidr]; !exists {
		return fmt.Errorf("dhcp options for cidr %q lookup: %w", cidr, ErrUUIDNotFound)
	}
	delete(m.dhcp, cidr)
	return nil
}

// portByUUID scans for a port by UUID. Callers hold m.mu.
func (m *MockClient) portByUUID(id string) *MockPort {
	for _, p := range m.ports {
		if p.UUID == id {
			return p
		}
	}
	return nil
}

// GetSwitch returns a copy of the named switch for test assertions.
func (m *MockClient) GetSwitch(name string) (MockSwitch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[name]
	if !exists {
		return MockSwitch{}, false
	}
	out := *ls
	out.Ports = append([]string(nil), ls.Ports...)
	return out, true
}

// GetPort returns a copy of the named port for test assertions.
func (m *MockClient) GetPort(name string) (MockPort, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.ports[name]
	if !exists {
		return MockPort{}, false
	}
	return *p, true
}

// GetDHCPOptions returns a copy of the options row for a CIDR for test
// assertions.
func (m *MockClient) GetDHCPOptions(cidr string) (MockDHCPOptions, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, exists := m.dhcp[cidr]
	if !exists {
		return MockDHCPOptions{}, false
	}
	out := *o
	out.Options = make(map[string]string, len(o.Options))
	for k, v := range o.Options {
		out.Options[k] = v
	}
	return out, true
}
