// Package db implements the control plane's typed PostgreSQL repository.
// Each table has a row struct and a column list defined once here; every
// query selects columns explicitly so row scanning never depends on table
// layout.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no rows. Callers
// distinguish it from infrastructure errors with errors.Is.
var ErrNotFound = errors.New("not found")

// Tenant is a row of the tenants table.
type Tenant struct {
	Name string    `db:"name" json:"name"`
	ID   uuid.UUID `db:"id" json:"id"`
}

// VPC is a row of the vpcs table.
type VPC struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Name   string    `db:"name" json:"name"`
	CIDR   string    `db:"cidr" json:"cidr"`
	NAT    bool      `db:"nat" json:"nat"`
	Tenant uuid.UUID `db:"tenant" json:"tenant"`
}

// Port is a row of the ports table.
type Port struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	VPC        uuid.UUID `db:"vpc" json:"vpc"`
	Hypervisor uuid.UUID `db:"hypervisor" json:"hypervisor"`
}

// SSHKey is a row of the ssh_pub_keys table.
type SSHKey struct {
	Name        string    `db:"name" json:"name"`
	PublicKey   string    `db:"ssh_pub_key" json:"ssh_pub_key"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Tenant      uuid.UUID `db:"tenant" json:"tenant"`
}

// Hypervisor is a row of the hypervisors table as the scheduler reads it.
type Hypervisor struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Hostname  string    `db:"hostname" json:"hostname"`
	TotalRAM  int32     `db:"total_ram" json:"total_ram"`
	TotalCPU  int32     `db:"total_cpu" json:"total_cpu"`
	UsedRAM   int32     `db:"used_ram" json:"used_ram"`
	UsedCPU   int32     `db:"used_cpu" json:"used_cpu"`
	HostedVMs int32     `db:"hosted_vms" json:"hosted_vms"`
	Arch      string    `db:"arch" json:"arch"`
}

// VirtualMachine is a row of the vms table as API clients see it. The
// networking columns stay internal to the insert path.
type VirtualMachine struct {
	Name        string         `db:"name" json:"name"`
	RAM         int32          `db:"ram" json:"ram"`
	CPU         int32          `db:"cpu" json:"cpu"`
	State       string         `db:"state" json:"state"`
	OS          string         `db:"os" json:"os"`
	DiskSize    int32          `db:"disk_size" json:"disk_size"`
	VPC         uuid.UUID      `db:"vpc" json:"vpc"`
	SSHPubKey   uuid.UUID      `db:"ssh_pub_key" json:"ssh_pub_key"`
	Tenant      uuid.UUID      `db:"tenant" json:"tenant"`
	Hypervisor  uuid.UUID      `db:"hypervisor" json:"hypervisor"`
	IPAddresses []netip.Prefix `db:"ip_addresses" json:"ip_addresses"`
}

// NewVirtualMachine holds the column values for a vms insert. Network is
// nil unless the VM is bridged onto a provider network.
type NewVirtualMachine struct {
	Name       string
	CPU        int32
	RAM        int32
	Tenant     uuid.UUID
	VPC        uuid.UUID
	SSHPubKey  uuid.UUID
	DiskSize   int32
	Hypervisor uuid.UUID
	OS         string
	State      string
	Networking string
	Network    *string
}

// ProviderNetwork is a row of the provider_networks table.
type ProviderNetwork struct {
	Name   string `db:"name" json:"name"`
	VLAN   int32  `db:"vlan" json:"vlan"`
	Subnet string `db:"subnet" json:"subnet"`
}

// Column lists for multi-column selects, in row struct order.
const (
	tenantColumns          = "name, id"
	vpcColumns             = "id, name, cidr, nat, tenant"
	portColumns            = "id, name, vpc, hypervisor"
	sshKeyColumns          = "name, ssh_pub_key, fingerprint, tenant"
	hypervisorColumns      = "id, hostname, total_ram, total_cpu, used_ram, used_cpu, hosted_vms, arch"
	vmColumns              = "name, ram, cpu, state, os, disk_size, vpc, ssh_pub_key, tenant, hypervisor, ip_addresses"
	providerNetworkColumns = "name, vlan, subnet"
)

// Repository is the persistence surface the control plane depends on.
// Store implements it against PostgreSQL; Mock implements it in memory
// for tests.
type Repository interface {
	CreateTenant(ctx context.Context, name string) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	TenantIDByName(ctx context.Context, name string) (uuid.UUID, error)
	TenantNameByID(ctx context.Context, id uuid.UUID) (string, error)
	ListTenants(ctx context.Context) ([]Tenant, error)

	CreateVPC(ctx context.Context, name, cidr string, nat bool, tenant uuid.UUID) error
	DeleteVPC(ctx context.Context, id uuid.UUID) error
	ListVPCsByTenantID(ctx context.Context, tenant uuid.UUID) ([]VPC, error)
	ListVPCsByTenantName(ctx context.Context, tenant string) ([]VPC, error)
	VPCByName(ctx context.Context, name string) (VPC, error)
	VPCIDByName(ctx context.Context, name string, tenant uuid.UUID) (uuid.UUID, error)
	VPCNameByID(ctx context.Context, id, tenant uuid.UUID) (string, error)
	VPCCIDR(ctx context.Context, name string, tenant uuid.UUID) (string, error)

	ListPorts(ctx context.Context, vpc uuid.UUID) ([]Port, error)

	CreateSSHPubKey(ctx context.Context, name, publicKey, fingerprint string, tenant uuid.UUID) error
	DeleteSSHPubKey(ctx context.Context, name string) error
	ListSSHPubKeys(ctx context.Context, tenant uuid.UUID) ([]SSHKey, error)
	SSHKeyIDByName(ctx context.Context, name string) (uuid.UUID, error)

	RegisterHypervisor(ctx context.Context, hostname string, totalRAM, totalCPU, usedRAM, usedCPU int32, arch string, hostedVMs int32) error
	UpdateHypervisor(ctx context.Context, id uuid.UUID, usedRAM, usedCPU, hostedVMs int32) error
	HypervisorIDByHostname(ctx context.Context, hostname string) (uuid.UUID, error)
	HypervisorHostnameByID(ctx context.Context, id uuid.UUID) (string, error)
	ListHypervisors(ctx context.Context) ([]Hypervisor, error)
	LeastLoadedHypervisors(ctx context.Context, arch string) ([]Hypervisor, error)

	CreateVirtualMachine(ctx context.Context, vm NewVirtualMachine) error
	DeleteVirtualMachine(ctx context.Context, name string) error
	VirtualMachineByName(ctx context.Context, name string, tenant uuid.UUID) (VirtualMachine, error)
	VirtualMachineByTenant(ctx context.Context, tenant uuid.UUID) (VirtualMachine, error)
	ListVirtualMachines(ctx context.Context, tenant uuid.UUID) ([]VirtualMachine, error)
	UpdateVMState(ctx context.Context, name string, tenant uuid.UUID, state string) error
	UpdateVMIPAddresses(ctx context.Context, name string, tenant uuid.UUID, addrs []netip.Prefix) error

	CreateProviderNetwork(ctx context.Context, name string, vlan int32, subnet string) error
	DeleteProviderNetwork(ctx context.Context, name string) error
	ProviderNetworkByName(ctx context.Context, name string) (ProviderNetwork, error)
	ListProviderNetworks(ctx context.Context) ([]ProviderNetwork, error)
}

// Store is the PostgreSQL-backed Repository.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool against url. The pool is lazy, so a
// wrong address surfaces on first use rather than here.
func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MaxConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateTenant(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, "INSERT INTO tenants (name) VALUES ($1)", name)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

func (s *Store) TenantIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("tenant %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query tenant by name: %w", err)
	}
	return id, nil
}

func (s *Store) TenantNameByID(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, "SELECT name FROM tenants WHERE id = $1", id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("tenant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query tenant by id: %w", err)
	}
	return name, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+tenantColumns+" FROM tenants")
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	tenants, err := pgx.CollectRows(rows, pgx.RowToStructByName[Tenant])
	if err != nil {
		return nil, fmt.Errorf("scan tenants: %w", err)
	}
	return tenants, nil
}

func (s *Store) CreateVPC(ctx context.Context, name, cidr string, nat bool, tenant uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO vpcs (name, cidr, nat, tenant) VALUES ($1, $2, $3, $4)",
		name, cidr, nat, tenant)
	if err != nil {
		return fmt.Errorf("insert vpc: %w", err)
	}
	return nil
}

func (s *Store) DeleteVPC(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM vpcs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete vpc: %w", err)
	}
	return nil
}

func (s *Store) ListVPCsByTenantID(ctx context.Context, tenant uuid.UUID) ([]VPC, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+vpcColumns+" FROM vpcs WHERE tenant = $1", tenant)
	if err != nil {
		return nil, fmt.Errorf("query vpcs: %w", err)
	}
	vpcs, err := pgx.CollectRows(rows, pgx.RowToStructByName[VPC])
	if err != nil {
		return nil, fmt.Errorf("scan vpcs: %w", err)
	}
	return vpcs, nil
}

func (s *Store) ListVPCsByTenantName(ctx context.Context, tenant string) ([]VPC, error) {
	id, err := s.TenantIDByName(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return s.ListVPCsByTenantID(ctx, id)
}

// VPCByName looks a VPC up by name alone, across tenants. VPC deletion
// uses it to recover the CIDR for overlay cleanup.
func (s *Store) VPCByName(ctx context.Context, name string) (VPC, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+vpcColumns+" FROM vpcs WHERE name = $1", name)
	if err != nil {
		return VPC{}, fmt.Errorf("query vpc by name: %w", err)
	}
	vpc, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[VPC])
	if errors.Is(err, pgx.ErrNoRows) {
		return VPC{}, fmt.Errorf("vpc %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return VPC{}, fmt.Errorf("scan vpc: %w", err)
	}
	return vpc, nil
}

func (s *Store) VPCIDByName(ctx context.Context, name string, tenant uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, "SELECT id FROM vpcs WHERE name = $1 AND tenant = $2", name, tenant).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("vpc %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query vpc by name: %w", err)
	}
	return id, nil
}

func (s *Store) VPCNameByID(ctx context.Context, id, tenant uuid.UUID) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, "SELECT name FROM vpcs WHERE id = $1 AND tenant = $2", id, tenant).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("vpc %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query vpc by id: %w", err)
	}
	return name, nil
}

func (s *Store) VPCCIDR(ctx context.Context, name string, tenant uuid.UUID) (string, error) {
	var cidr string
	err := s.pool.QueryRow(ctx, "SELECT cidr FROM vpcs WHERE name = $1 AND tenant = $2", name, tenant).Scan(&cidr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("vpc %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query vpc cidr: %w", err)
	}
	return cidr, nil
}

func (s *Store) ListPorts(ctx context.Context, vpc uuid.UUID) ([]Port, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+portColumns+" FROM ports WHERE vpc = $1", vpc)
	if err != nil {
		return nil, fmt.Errorf("query ports: %w", err)
	}
	ports, err := pgx.CollectRows(rows, pgx.RowToStructByName[Port])
	if err != nil {
		return nil, fmt.Errorf("scan ports: %w", err)
	}
	return ports, nil
}

func (s *Store) CreateSSHPubKey(ctx context.Context, name, publicKey, fingerprint string, tenant uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO ssh_pub_keys (name, ssh_pub_key, fingerprint, tenant) VALUES ($1, $2, $3, $4)",
		name, publicKey, fingerprint, tenant)
	if err != nil {
		return fmt.Errorf("insert ssh key: %w", err)
	}
	return nil
}

func (s *Store) DeleteSSHPubKey(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM ssh_pub_keys WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete ssh key: %w", err)
	}
	return nil
}

func (s *Store) ListSSHPubKeys(ctx context.Context, tenant uuid.UUID) ([]SSHKey, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+sshKeyColumns+" FROM ssh_pub_keys WHERE tenant = $1", tenant)
	if err != nil {
		return nil, fmt.Errorf("query ssh keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowToStructByName[SSHKey])
	if err != nil {
		return nil, fmt.Errorf("scan ssh keys: %w", err)
	}
	return keys, nil
}

func (s *Store) SSHKeyIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, "SELECT id FROM ssh_pub_keys WHERE name = $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("ssh key %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query ssh key by name: %w", err)
	}
	return id, nil
}

func (s *Store) RegisterHypervisor(ctx context.Context, hostname string, totalRAM, totalCPU, usedRAM, usedCPU int32, arch string, hostedVMs int32) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO hypervisors (hostname, total_ram, total_cpu, used_ram, used_cpu, arch, hosted_vms) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		hostname, totalRAM, totalCPU, usedRAM, usedCPU, arch, hostedVMs)
	if err != nil {
		return fmt.Errorf("insert hypervisor: %w", err)
	}
	return nil
}

func (s *Store) UpdateHypervisor(ctx context.Context, id uuid.UUID, usedRAM, usedCPU, hostedVMs int32) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE hypervisors SET used_ram = $1, used_cpu = $2, hosted_vms = $3 WHERE id = $4",
		usedRAM, usedCPU, hostedVMs, id)
	if err != nil {
		return fmt.Errorf("update hypervisor: %w", err)
	}
	return nil
}

func (s *Store) HypervisorIDByHostname(ctx context.Context, hostname string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, "SELECT id FROM hypervisors WHERE hostname = $1", hostname).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("hypervisor %q: %w", hostname, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query hypervisor by hostname: %w", err)
	}
	return id, nil
}

func (s *Store) HypervisorHostnameByID(ctx context.Context, id uuid.UUID) (string, error) {
	var hostname string
	err := s.pool.QueryRow(ctx, "SELECT hostname FROM hypervisors WHERE id = $1", id).Scan(&hostname)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("hypervisor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query hypervisor by id: %w", err)
	}
	return hostname, nil
}

func (s *Store) ListHypervisors(ctx context.Context) ([]Hypervisor, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+hypervisorColumns+" FROM hypervisors")
	if err != nil {
		return nil, fmt.Errorf("query hypervisors: %w", err)
	}
	hypervisors, err := pgx.CollectRows(rows, pgx.RowToStructByName[Hypervisor])
	if err != nil {
		return nil, fmt.Errorf("scan hypervisors: %w", err)
	}
	return hypervisors, nil
}

// LeastLoadedHypervisors returns the hypervisors of the given architecture
// that host the fewest VMs.
func (s *Store) LeastLoadedHypervisors(ctx context.Context, arch string) ([]Hypervisor, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+hypervisorColumns+" FROM hypervisors WHERE arch = $1 AND hosted_vms = (SELECT MIN(hosted_vms) FROM hypervisors WHERE arch = $1)",
		arch)
	if err != nil {
		return nil, fmt.Errorf("query hypervisors: %w", err)
	}
	hypervisors, err := pgx.CollectRows(rows, pgx.RowToStructByName[Hypervisor])
	if err != nil {
		return nil, fmt.Errorf("scan hypervisors: %w", err)
	}
	return hypervisors, nil
}

func (s *Store) CreateVirtualMachine(ctx context.Context, vm NewVirtualMachine) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO vms (name, cpu, ram, tenant, vpc, ssh_pub_key, disk_size, hypervisor, os, state, networking, network) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		vm.Name, vm.CPU, vm.RAM, vm.Tenant, vm.VPC, vm.SSHPubKey, vm.DiskSize, vm.Hypervisor, vm.OS, vm.State, vm.Networking, vm.Network)
	if err != nil {
		return fmt.Errorf("insert vm: %w", err)
	}
	return nil
}

func (s *Store) DeleteVirtualMachine(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM vms WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete vm: %w", err)
	}
	return nil
}

func (s *Store) VirtualMachineByName(ctx context.Context, name string, tenant uuid.UUID) (VirtualMachine, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+vmColumns+" FROM vms WHERE name = $1 AND tenant = $2", name, tenant)
	if err != nil {
		return VirtualMachine{}, fmt.Errorf("query vm by name: %w", err)
	}
	vm, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[VirtualMachine])
	if errors.Is(err, pgx.ErrNoRows) {
		return VirtualMachine{}, fmt.Errorf("vm %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return VirtualMachine{}, fmt.Errorf("scan vm: %w", err)
	}
	return vm, nil
}

// VirtualMachineByTenant returns any one VM owned by the tenant, or
// ErrNotFound when the tenant has none. Tenant deletion uses it as an
// existence guard.
func (s *Store) VirtualMachineByTenant(ctx context.Context, tenant uuid.UUID) (VirtualMachine, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+vmColumns+" FROM vms WHERE tenant = $1 LIMIT 1", tenant)
	if err != nil {
		return VirtualMachine{}, fmt.Errorf("query vm by tenant: %w", err)
	}
	vm, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[VirtualMachine])
	if errors.Is(err, pgx.ErrNoRows) {
		return VirtualMachine{}, fmt.Errorf("tenant %s vms: %w", tenant, ErrNotFound)
	}
	if err != nil {
		return VirtualMachine{}, fmt.Errorf("scan vm: %w", err)
	}
	return vm, nil
}

func (s *Store) ListVirtualMachines(ctx context.Context, tenant uuid.UUID) ([]VirtualMachine, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+vmColumns+" FROM vms WHERE tenant = $1", tenant)
	if err != nil {
		return nil, fmt.Errorf("query vms: %w", err)
	}
	vms, err := pgx.CollectRows(rows, pgx.RowToStructByName[VirtualMachine])
	if err != nil {
		return nil, fmt.Errorf("scan vms: %w", err)
	}
	return vms, nil
}

func (s *Store) UpdateVMState(ctx context.Context, name string, tenant uuid.UUID, state string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE vms SET state = $1 WHERE name = $2 AND tenant = $3", state, name, tenant)
	if err != nil {
		return fmt.Errorf("update vm state: %w", err)
	}
	return nil
}

func (s *Store) UpdateVMIPAddresses(ctx context.Context, name string, tenant uuid.UUID, addrs []netip.Prefix) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE vms SET ip_addresses = $1 WHERE name = $2 AND tenant = $3", addrs, name, tenant)
	if err != nil {
		return fmt.Errorf("update vm ip addresses: %w", err)
	}
	return nil
}

func (s *Store) CreateProviderNetwork(ctx context.Context, name string, vlan int32, subnet string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO provider_networks (name, vlan, subnet) VALUES ($1, $2, $3)", name, vlan, subnet)
	if err != nil {
		return fmt.Errorf("insert provider network: %w", err)
	}
	return nil
}

func (s *Store) DeleteProviderNetwork(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM provider_networks WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete provider network: %w", err)
	}
	return nil
}

func (s *Store) ProviderNetworkByName(ctx context.Context, name string) (ProviderNetwork, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+providerNetworkColumns+" FROM provider_networks WHERE name = $1", name)
	if err != nil {
		return ProviderNetwork{}, fmt.Errorf("query provider network: %w", err)
	}
	network, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[ProviderNetwork])
	if errors.Is(err, pgx.ErrNoRows) {
		return ProviderNetwork{}, fmt.Errorf("provider network %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return ProviderNetwork{}, fmt.Errorf("scan provider network: %w", err)
	}
	return network, nil
}

func (s *Store) ListProviderNetworks(ctx context.Context) ([]ProviderNetwork, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+providerNetworkColumns+" FROM provider_networks")
	if err != nil {
		return nil, fmt.Errorf("query provider networks: %w", err)
	}
	networks, err := pgx.CollectRows(rows, pgx.RowToStructByName[ProviderNetwork])
	if err != nil {
		return nil, fmt.Errorf("scan provider networks: %w", err)
	}
	return networks, nil
}
