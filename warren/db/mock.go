package db

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Mock is an in-memory Repository for tests. It enforces the schema's
// unique constraints so handler tests catch double inserts, but performs
// no foreign key checks.
type Mock struct {
	mu sync.Mutex

	tenants          []Tenant
	vpcs             []VPC
	ports            []Port
	sshKeys          []mockSSHKey
	hypervisors      []Hypervisor
	vms              []mockVM
	providerNetworks []ProviderNetwork
}

// mockVM carries the networking columns the VirtualMachine row type
// does not expose.
type mockVM struct {
	VirtualMachine
	Networking string
	Network    *string
}

// mockSSHKey carries the key id, which the row type does not expose.
type mockSSHKey struct {
	SSHKey
	ID uuid.UUID
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) CreateTenant(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Name == name {
			return fmt.Errorf("tenant %q already exists", name)
		}
	}
	m.tenants = append(m.tenants, Tenant{Name: name, ID: uuid.New()})
	return nil
}

func (m *Mock) DeleteTenant(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = slices.DeleteFunc(m.tenants, func(t Tenant) bool { return t.ID == id })
	return nil
}

func (m *Mock) TenantIDByName(_ context.Context, name string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Name == name {
			return t.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("tenant %q: %w", name, ErrNotFound)
}

func (m *Mock) TenantNameByID(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.ID == id {
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("tenant %s: %w", id, ErrNotFound)
}

func (m *Mock) ListTenants(_ context.Context) ([]Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tenants), nil
}

func (m *Mock) CreateVPC(_ context.Context, name, cidr string, nat bool, tenant uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vpcs {
		if v.Name == name && v.Tenant == tenant {
			return fmt.Errorf("vpc %q already exists", name)
		}
	}
	m.vpcs = append(m.vpcs, VPC{ID: uuid.New(), Name: name, CIDR: cidr, NAT: nat, Tenant: tenant})
	return nil
}

func (m *Mock) DeleteVPC(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vpcs = slices.DeleteFunc(m.vpcs, func(v VPC) bool { return v.ID == id })
	return nil
}

func (m *Mock) ListVPCsByTenantID(_ context.Context, tenant uuid.UUID) ([]VPC, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var vpcs []VPC
	for _, v := range m.vpcs {
		if v.Tenant == tenant {
			vpcs = append(vpcs, v)
		}
	}
	return vpcs, nil
}

func (m *Mock) ListVPCsByTenantName(ctx context.Context, tenant string) ([]VPC, error) {
	id, err := m.TenantIDByName(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return m.ListVPCsByTenantID(ctx, id)
}

func (m *Mock) VPCByName(_ context.Context, name string) (VPC, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vpcs {
		if v.Name == name {
			return v, nil
		}
	}
	return VPC{}, fmt.Errorf("vpc %q: %w", name, ErrNotFound)
}

func (m *Mock) VPCIDByName(_ context.Context, name string, tenant uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vpcs {
		if v.Name == name && v.Tenant == tenant {
			return v.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("vpc %q: %w", name, ErrNotFound)
}

func (m *Mock) VPCNameByID(_ context.Context, id, tenant uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vpcs {
		if v.ID == id && v.Tenant == tenant {
			return v.Name, nil
		}
	}
	return "", fmt.Errorf("vpc %s: %w", id, ErrNotFound)
}

func (m *Mock) VPCCIDR(_ context.Context, name string, tenant uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vpcs {
		if v.Name == name && v.Tenant == tenant {
			return v.CIDR, nil
		}
	}
	return "", fmt.Errorf("vpc %q: %w", name, ErrNotFound)
}

// AddPort seeds a port row. Nothing in the API creates ports yet, so
// tests populate them directly.
func (m *Mock) AddPort(name string, vpc, hypervisor uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.ports = append(m.ports, Port{ID: id, Name: name, VPC: vpc, Hypervisor: hypervisor})
	return id
}

func (m *Mock) ListPorts(_ context.Context, vpc uuid.UUID) ([]Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ports []Port
	for _, p := range m.ports {
		if p.VPC == vpc {
			ports = append(ports, p)
		}
	}
	return ports, nil
}

func (m *Mock) CreateSSHPubKey(_ context.Context, name, publicKey, fingerprint string, tenant uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.sshKeys {
		if k.Name == name {
			return fmt.Errorf("ssh key %q already exists", name)
		}
	}
	m.sshKeys = append(m.sshKeys, mockSSHKey{
		SSHKey: SSHKey{Name: name, PublicKey: publicKey, Fingerprint: fingerprint, Tenant: tenant},
		ID:     uuid.New(),
	})
	return nil
}

func (m *Mock) DeleteSSHPubKey(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sshKeys = slices.DeleteFunc(m.sshKeys, func(k mockSSHKey) bool { return k.Name == name })
	return nil
}

func (m *Mock) ListSSHPubKeys(_ context.Context, tenant uuid.UUID) ([]SSHKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []SSHKey
	for _, k := range m.sshKeys {
		if k.Tenant == tenant {
			keys = append(keys, k.SSHKey)
		}
	}
	return keys, nil
}

// SSH key names are unique across tenants, so the lookup takes no tenant.
func (m *Mock) SSHKeyIDByName(_ context.Context, name string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.sshKeys {
		if k.Name == name {
			return k.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("ssh key %q: %w", name, ErrNotFound)
}

func (m *Mock) RegisterHypervisor(_ context.Context, hostname string, totalRAM, totalCPU, usedRAM, usedCPU int32, arch string, hostedVMs int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hypervisors {
		if h.Hostname == hostname {
			return fmt.Errorf("hypervisor %q already exists", hostname)
		}
	}
	m.hypervisors = append(m.hypervisors, Hypervisor{
		ID:        uuid.New(),
		Hostname:  hostname,
		TotalRAM:  totalRAM,
		TotalCPU:  totalCPU,
		UsedRAM:   usedRAM,
		UsedCPU:   usedCPU,
		HostedVMs: hostedVMs,
		Arch:      arch,
	})
	return nil
}

func (m *Mock) UpdateHypervisor(_ context.Context, id uuid.UUID, usedRAM, usedCPU, hostedVMs int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.hypervisors {
		if m.hypervisors[i].ID == id {
			m.hypervisors[i].UsedRAM = usedRAM
			m.hypervisors[i].UsedCPU = usedCPU
			m.hypervisors[i].HostedVMs = hostedVMs
		}
	}
	return nil
}

func (m *Mock) HypervisorIDByHostname(_ context.Context, hostname string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hypervisors {
		if h.Hostname == hostname {
			return h.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("hypervisor %q: %w", hostname, ErrNotFound)
}

func (m *Mock) HypervisorHostnameByID(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hypervisors {
		if h.ID == id {
			return h.Hostname, nil
		}
	}
	return "", fmt.Errorf("hypervisor %s: %w", id, ErrNotFound)
}

func (m *Mock) ListHypervisors(_ context.Context) ([]Hypervisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.hypervisors), nil
}

func (m *Mock) LeastLoadedHypervisors(_ context.Context, arch string) ([]Hypervisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	min := int32(-1)
	for _, h := range m.hypervisors {
		if h.Arch != arch {
			continue
		}
		if min < 0 || h.HostedVMs < min {
			min = h.HostedVMs
		}
	}
	var least []Hypervisor
	for _, h := range m.hypervisors {
		if h.Arch == arch && h.HostedVMs == min {
			least = append(least, h)
		}
	}
	return least, nil
}

func (m *Mock) CreateVirtualMachine(_ context.Context, vm NewVirtualMachine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vms {
		if existing.Name == vm.Name && existing.Tenant == vm.Tenant {
			return fmt.Errorf("vm %q already exists", vm.Name)
		}
	}
	m.vms = append(m.vms, mockVM{
		VirtualMachine: VirtualMachine{
			Name:        vm.Name,
			RAM:         vm.RAM,
			CPU:         vm.CPU,
			State:       vm.State,
			OS:          vm.OS,
			DiskSize:    vm.DiskSize,
			VPC:         vm.VPC,
			SSHPubKey:   vm.SSHPubKey,
			Tenant:      vm.Tenant,
			Hypervisor:  vm.Hypervisor,
			IPAddresses: []netip.Prefix{},
		},
		Networking: vm.Networking,
		Network:    vm.Network,
	})
	return nil
}

func (m *Mock) DeleteVirtualMachine(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vms = slices.DeleteFunc(m.vms, func(v mockVM) bool { return v.Name == name })
	return nil
}

func (m *Mock) VirtualMachineByName(_ context.Context, name string, tenant uuid.UUID) (VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vms {
		if v.Name == name && v.Tenant == tenant {
			return v.VirtualMachine, nil
		}
	}
	return VirtualMachine{}, fmt.Errorf("vm %q: %w", name, ErrNotFound)
}

func (m *Mock) VirtualMachineByTenant(_ context.Context, tenant uuid.UUID) (VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vms {
		if v.Tenant == tenant {
			return v.VirtualMachine, nil
		}
	}
	return VirtualMachine{}, fmt.Errorf("tenant %s vms: %w", tenant, ErrNotFound)
}

func (m *Mock) ListVirtualMachines(_ context.Context, tenant uuid.UUID) ([]VirtualMachine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var vms []VirtualMachine
	for _, v := range m.vms {
		if v.Tenant == tenant {
			vms = append(vms, v.VirtualMachine)
		}
	}
	return vms, nil
}

func (m *Mock) UpdateVMState(_ context.Context, name string, tenant uuid.UUID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.vms {
		if m.vms[i].Name == name && m.vms[i].Tenant == tenant {
			m.vms[i].State = state
		}
	}
	return nil
}

func (m *Mock) UpdateVMIPAddresses(_ context.Context, name string, tenant uuid.UUID, addrs []netip.Prefix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.vms {
		if m.vms[i].Name == name && m.vms[i].Tenant == tenant {
			m.vms[i].IPAddresses = slices.Clone(addrs)
		}
	}
	return nil
}

func (m *Mock) CreateProviderNetwork(_ context.Context, name string, vlan int32, subnet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.providerNetworks {
		if n.Name == name {
			return fmt.Errorf("provider network %q already exists", name)
		}
	}
	m.providerNetworks = append(m.providerNetworks, ProviderNetwork{Name: name, VLAN: vlan, Subnet: subnet})
	return nil
}

func (m *Mock) DeleteProviderNetwork(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerNetworks = slices.DeleteFunc(m.providerNetworks, func(n ProviderNetwork) bool { return n.Name == name })
	return nil
}

func (m *Mock) ProviderNetworkByName(_ context.Context, name string) (ProviderNetwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.providerNetworks {
		if n.Name == name {
			return n, nil
		}
	}
	return ProviderNetwork{}, fmt.Errorf("provider network %q: %w", name, ErrNotFound)
}

func (m *Mock) ListProviderNetworks(_ context.Context) ([]ProviderNetwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.providerNetworks), nil
}
