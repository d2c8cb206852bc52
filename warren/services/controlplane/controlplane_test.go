package controlplane

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warrenhq/warren/warren/db"
	"github.com/warrenhq/warren/warren/ovn"
	"github.com/warrenhq/warren/warren/vm"
	"golang.org/x/crypto/ssh"
)

// fakeDispatcher records compute calls and answers with a canned status.
type fakeDispatcher struct {
	status int
	err    error

	createReqs []vm.CreateRequest
	deleteReqs []vm.DeleteRequest
	hostnames  []string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{status: http.StatusOK}
}

func (f *fakeDispatcher) CreateVM(_ context.Context, hostname string, req vm.CreateRequest) (int, error) {
	f.hostnames = append(f.hostnames, hostname)
	f.createReqs = append(f.createReqs, req)
	return f.status, f.err
}

func (f *fakeDispatcher) DeleteVM(_ context.Context, hostname string, req vm.DeleteRequest) (int, error) {
	f.hostnames = append(f.hostnames, hostname)
	f.deleteReqs = append(f.deleteReqs, req)
	return f.status, f.err
}

var _ Dispatcher = (*fakeDispatcher)(nil)

type testEnv struct {
	app      *fiber.App
	repo     *db.Mock
	overlay  *ovn.MockClient
	dispatch *fakeDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := db.NewMock()
	overlay := ovn.NewMockClient()
	dispatch := newFakeDispatcher()
	srv := NewServer(repo, overlay, dispatch, nil)
	srv.DisableLogging = true
	return &testEnv{app: srv.SetupRoutes(), repo: repo, overlay: overlay, dispatch: dispatch}
}

func (e *testEnv) request(t *testing.T, method, path string, payload any) (int, string) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func testAuthorizedKey(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
}

func TestTenantLifecycle(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, "POST", "/tenant/create", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tenant 'acme' created successfully.", body)

	status, body = env.request(t, "POST", "/tenant/create", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Tenant 'acme' already exists.", body)

	status, _ = env.request(t, "POST", "/tenant/create", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.request(t, "POST", "/tenant/delete", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tenant 'acme' deleted successfully.", body)

	status, body = env.request(t, "POST", "/tenant/delete", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Tenant with name 'acme' not found.", body)
}

func TestTenantDeleteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, env.repo.CreateSSHPubKey(ctx, "laptop", "ssh-ed25519 AAAA", "SHA256:x", tenantID))
	status, body := env.request(t, "POST", "/tenant/delete", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "associated SSH keys (1 found)")

	require.NoError(t, env.repo.CreateVirtualMachine(ctx, db.NewVirtualMachine{
		Name: "web", Tenant: tenantID, State: "created", Networking: vm.NetworkingL2Tenant,
	}))
	status, body = env.request(t, "POST", "/tenant/delete", fiber.Map{"id": tenantID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "has associated VMs")
}

func TestVPCCreateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)

	payload := fiber.Map{"name": "core", "cidr": "10.1.0.0/24", "nat": true, "tenant": tenantID}
	status, body := env.request(t, "POST", "/vpc/create", payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VPC 'core' created successfully.", body)

	switchName := fmt.Sprintf("%s-core", tenantID)
	ls, ok := env.overlay.GetSwitch(switchName)
	require.True(t, ok, "logical switch should exist after VPC create")
	assert.Equal(t, "10.1.0.0/24", ls.Subnet)
	_, ok = env.overlay.GetDHCPOptions("10.1.0.0/24")
	assert.True(t, ok, "dhcp options should exist after VPC create")

	status, body = env.request(t, "POST", "/vpc/create", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VPC 'core' already exists.", body)

	vpcID, err := env.repo.VPCIDByName(ctx, "core", tenantID)
	require.NoError(t, err)

	status, body = env.request(t, "POST", "/vpc/delete", fiber.Map{"id": vpcID, "tenant": tenantID})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, fmt.Sprintf("VPC '%s' deleted successfully.", vpcID), body)

	_, ok = env.overlay.GetSwitch(switchName)
	assert.False(t, ok, "logical switch should be gone after VPC delete")
	_, ok = env.overlay.GetDHCPOptions("10.1.0.0/24")
	assert.False(t, ok, "dhcp options should be gone after VPC delete")
}

func TestVPCDeleteBlockedByPorts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, env.repo.CreateVPC(ctx, "core", "10.1.0.0/24", true, tenantID))
	vpcID, err := env.repo.VPCIDByName(ctx, "core", tenantID)
	require.NoError(t, err)

	env.repo.AddPort("acme-web", vpcID, uuid.New())

	status, body := env.request(t, "POST", "/vpc/delete", fiber.Map{"id": vpcID, "tenant": tenantID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "has ports associated with it")
}

func TestVPCListFormats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, env.repo.CreateVPC(ctx, "core", "10.1.0.0/24", true, tenantID))

	// Selecting by name answers YAML, by id answers JSON.
	status, body := env.request(t, "POST", "/vpcs/list", fiber.Map{"name": "acme"})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "name: core")

	status, body = env.request(t, "POST", "/vpcs/list", fiber.Map{"id": tenantID})
	assert.Equal(t, http.StatusOK, status)
	var vpcs []db.VPC
	require.NoError(t, json.Unmarshal([]byte(body), &vpcs))
	require.Len(t, vpcs, 1)
	assert.Equal(t, "core", vpcs[0].Name)

	status, _ = env.request(t, "POST", "/vpcs/list", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSSHKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)

	key := testAuthorizedKey(t)
	status, body := env.request(t, "POST", "/ssh_pub_key/create",
		fiber.Map{"name": "laptop", "ssh_pub_key": key, "tenant": tenantID})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SSH public key 'laptop' created successfully.", body)

	status, body = env.request(t, "POST", "/ssh_pub_key/create",
		fiber.Map{"name": "bad", "ssh_pub_key": "not a key", "tenant": tenantID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Invalid SSH public key")

	status, body = env.request(t, "POST", "/ssh_pub_keys/list", fiber.Map{"id": tenantID})
	assert.Equal(t, http.StatusOK, status)
	var keys []db.SSHKey
	require.NoError(t, json.Unmarshal([]byte(body), &keys))
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0].Fingerprint, "SHA256:"), "fingerprint %q", keys[0].Fingerprint)

	status, body = env.request(t, "POST", "/ssh_pub_key/delete", fiber.Map{"name": "laptop"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SSH public key with name 'laptop' deleted successfully.", body)
}

func TestProviderNetworkValidation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, "POST", "/provider_network/create",
		fiber.Map{"name": "dmz", "vlan": 100, "subnet": "192.168.100.0/24"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Provider network 'dmz' created successfully.", body)

	for _, bad := range []fiber.Map{
		{"name": "", "vlan": 100, "subnet": "192.168.100.0/24"},
		{"name": "dmz2", "vlan": 0, "subnet": "192.168.100.0/24"},
		{"name": "dmz2", "vlan": 4095, "subnet": "192.168.100.0/24"},
		{"name": "dmz2", "vlan": 100, "subnet": ""},
	} {
		status, body = env.request(t, "POST", "/provider_network/create", bad)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Provider network must include a non-empty name and a valid VLAN (1-4094).", body)
	}

	status, _ = env.request(t, "GET", "/provider_networks/list", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.request(t, "POST", "/provider_network/delete", fiber.Map{"name": "dmz"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Provider network 'dmz' deleted successfully.", body)
}

func TestHypervisorStatsRegistersNewHost(t *testing.T) {
	env := newTestEnv(t)

	report := vm.StatsReport{Hostname: "hv1", Memory: 64, CPU: 16, Arch: "x86_64"}
	status, body := env.request(t, "POST", "/hypervisor/stats", report)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hypervisor 'hv1' registered successfully.", body)

	hvs, err := env.repo.ListHypervisors(context.Background())
	require.NoError(t, err)
	require.Len(t, hvs, 1)
	assert.Equal(t, int32(1), hvs[0].UsedRAM)
	assert.Equal(t, int32(1), hvs[0].UsedCPU)
	assert.Equal(t, int32(0), hvs[0].HostedVMs)
}

func TestHypervisorStatsRejectsUnknownArch(t *testing.T) {
	env := newTestEnv(t)

	report := vm.StatsReport{Hostname: "hv1", Memory: 64, CPU: 16, Arch: "riscv64"}
	status, body := env.request(t, "POST", "/hypervisor/stats", report)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid architecture specified. Only x86_64 and aarch64 are supported.", body)
}

func TestHypervisorStatsReconcilesVMs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, env.repo.RegisterHypervisor(ctx, "hv1", 64, 16, 1, 1, "x86_64", 0))
	require.NoError(t, env.repo.CreateVirtualMachine(ctx, db.NewVirtualMachine{
		Name: "web", RAM: 4, CPU: 2, Tenant: tenantID, State: "created", Networking: vm.NetworkingL2Tenant,
	}))

	report := vm.StatsReport{
		Hostname: "hv1", Memory: 64, CPU: 16, Arch: "x86_64",
		VMs: []vm.GuestReport{
			{Name: "acme-web", Memory: 4, CPU: 2, State: "running", IPAddresses: []string{"10.1.0.5/24"}},
			{Name: "stray", Memory: 1, CPU: 1, State: "running"}, // not an instance name, skipped
		},
	}
	status, body := env.request(t, "POST", "/hypervisor/stats", report)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hypervisor and all VMs updated successfully.", body)

	record, err := env.repo.VirtualMachineByName(ctx, "web", tenantID)
	require.NoError(t, err)
	assert.Equal(t, "running", record.State)
	require.Len(t, record.IPAddresses, 1)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.5/24"), record.IPAddresses[0])

	hvs, err := env.repo.ListHypervisors(ctx)
	require.NoError(t, err)
	require.Len(t, hvs, 1)
	assert.Equal(t, int32(2+4+2), hvs[0].UsedRAM) // 1+4 for web, 1+1 for stray
	assert.Equal(t, int32(2), hvs[0].HostedVMs)
}

func TestHypervisorStatsReportsMissingTenant(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.RegisterHypervisor(context.Background(), "hv1", 64, 16, 1, 1, "x86_64", 0))

	report := vm.StatsReport{
		Hostname: "hv1", Memory: 64, CPU: 16, Arch: "x86_64",
		VMs: []vm.GuestReport{{Name: "ghost-web", Memory: 1, CPU: 1, State: "running"}},
	}
	status, body := env.request(t, "POST", "/hypervisor/stats", report)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "Tenant 'ghost' not found.")
}

// seedVMEnv provisions a tenant, VPC, SSH key and hypervisor, the minimum
// the scheduler needs.
func seedVMEnv(t *testing.T, env *testEnv) (tenantID uuid.UUID, key string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)

	// Through the API so the overlay side exists too.
	status, _ := env.request(t, "POST", "/vpc/create",
		fiber.Map{"name": "core", "cidr": "10.1.0.0/24", "nat": true, "tenant": tenantID})
	require.Equal(t, http.StatusOK, status)

	key = testAuthorizedKey(t)
	status, _ = env.request(t, "POST", "/ssh_pub_key/create",
		fiber.Map{"name": "laptop", "ssh_pub_key": key, "tenant": tenantID})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, env.repo.RegisterHypervisor(ctx, "hv1", 64, 16, 1, 1, "x86_64", 0))
	return tenantID, key
}

func TestCreateVirtualMachineL2Tenant(t *testing.T) {
	env := newTestEnv(t)
	tenantID, _ := seedVMEnv(t, env)

	payload := fiber.Map{
		"name": "web", "ram": 4, "cpu": 2, "os": "fedora41", "disk_size": 20,
		"vpc": "core", "ssh_pub_key": "laptop", "tenant": "acme",
		"arch": "x86_64", "networking": vm.NetworkingL2Tenant,
	}
	status, body := env.request(t, "POST", "/virtualmachine/create", payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VM 'web' created successfully.", body)

	// Overlay port carries the generated MAC and the VPC's DHCP options.
	port, ok := env.overlay.GetPort("acme-web")
	require.True(t, ok, "logical switch port should exist")
	assert.Contains(t, port.Addresses, "dynamic")
	opts, ok := env.overlay.GetDHCPOptions("10.1.0.0/24")
	require.True(t, ok)
	assert.Equal(t, opts.UUID, port.DHCPv4Options)

	// Compute node got the placement with memory converted to MiB.
	require.Len(t, env.dispatch.createReqs, 1)
	sent := env.dispatch.createReqs[0]
	assert.Equal(t, "hv1", env.dispatch.hostnames[0])
	assert.Equal(t, uint64(4*1024), sent.Memory)
	assert.Equal(t, sent.MacAddr, strings.ToLower(sent.MacAddr))
	assert.Empty(t, sent.Network)

	record, err := env.repo.VirtualMachineByName(context.Background(), "web", tenantID)
	require.NoError(t, err)
	assert.Equal(t, "created", record.State)

	status, body = env.request(t, "POST", "/virtualmachine/create", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VM 'web' already exists.", body)
}

func TestCreateVirtualMachineBridged(t *testing.T) {
	env := newTestEnv(t)
	seedVMEnv(t, env)
	require.NoError(t, env.repo.CreateProviderNetwork(context.Background(), "dmz", 100, "192.168.100.0/24"))

	payload := fiber.Map{
		"name": "edge", "ram": 2, "cpu": 1, "os": "rhel9", "disk_size": 10,
		"vpc": "core", "ssh_pub_key": "laptop", "tenant": "acme",
		"arch": "x86_64", "networking": vm.NetworkingL2Bridged, "network": "dmz",
	}
	status, body := env.request(t, "POST", "/virtualmachine/create", payload)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VM 'edge' created successfully.", body)

	require.Len(t, env.dispatch.createReqs, 1)
	assert.Equal(t, "100", env.dispatch.createReqs[0].Network)

	// No overlay port in bridged mode.
	_, ok := env.overlay.GetPort("acme-edge")
	assert.False(t, ok)
}

func TestCreateVirtualMachineValidation(t *testing.T) {
	env := newTestEnv(t)
	seedVMEnv(t, env)

	base := func() fiber.Map {
		return fiber.Map{
			"name": "web", "ram": 4, "cpu": 2, "os": "fedora41", "disk_size": 20,
			"vpc": "core", "ssh_pub_key": "laptop", "tenant": "acme",
			"arch": "x86_64", "networking": vm.NetworkingL2Tenant,
		}
	}

	p := base()
	p["tenant"] = "ghost"
	status, body := env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Tenant not found", body)

	p = base()
	p["networking"] = "l3-routed"
	status, body = env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid networking type, valid modes are: l2-tenant, l2-bridged", body)

	p = base()
	p["network"] = "dmz"
	status, body = env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Network can only be specified for the l2-bridged networking mode", body)

	p = base()
	p["networking"] = vm.NetworkingL2Bridged
	status, body = env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Network must be specified for 'l2-bridged' networking.", body)

	p = base()
	p["networking"] = vm.NetworkingL2Bridged
	p["network"] = "missing"
	status, body = env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Network 'missing' does not exist.", body)

	p = base()
	p["ram"] = 4096 // more than hv1 can take
	status, body = env.request(t, "POST", "/virtualmachine/create", p)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No hypervisor available with enough resources to schedule VM.", body)
}

func TestCreateVirtualMachineComputeFailure(t *testing.T) {
	env := newTestEnv(t)
	seedVMEnv(t, env)
	env.dispatch.status = http.StatusInternalServerError

	payload := fiber.Map{
		"name": "web", "ram": 4, "cpu": 2, "os": "fedora41", "disk_size": 20,
		"vpc": "core", "ssh_pub_key": "laptop", "tenant": "acme",
		"arch": "x86_64", "networking": vm.NetworkingL2Tenant,
	}
	status, body := env.request(t, "POST", "/virtualmachine/create", payload)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to create VM on hypervisor 'hv1'.", body)
}

func TestDeleteVirtualMachine(t *testing.T) {
	env := newTestEnv(t)
	seedVMEnv(t, env)

	payload := fiber.Map{
		"name": "web", "ram": 4, "cpu": 2, "os": "fedora41", "disk_size": 20,
		"vpc": "core", "ssh_pub_key": "laptop", "tenant": "acme",
		"arch": "x86_64", "networking": vm.NetworkingL2Tenant,
	}
	status, _ := env.request(t, "POST", "/virtualmachine/create", payload)
	require.Equal(t, http.StatusOK, status)

	status, body := env.request(t, "POST", "/virtualmachine/delete",
		fiber.Map{"name": "web", "tenant": "acme"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VM 'web' deleted successfully.", body)

	_, ok := env.overlay.GetPort("acme-web")
	assert.False(t, ok, "overlay port should be removed")
	require.Len(t, env.dispatch.deleteReqs, 1)
	assert.Equal(t, vm.DeleteRequest{Name: "web", Tenant: "acme"}, env.dispatch.deleteReqs[0])

	status, body = env.request(t, "POST", "/virtualmachine/delete",
		fiber.Map{"name": "web", "tenant": "acme"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VM 'web' not found.", body)
}

func TestListVirtualMachines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateTenant(ctx, "acme"))
	tenantID, err := env.repo.TenantIDByName(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, env.repo.CreateVirtualMachine(ctx, db.NewVirtualMachine{
		Name: "web", Tenant: tenantID, State: "created", Networking: vm.NetworkingL2Tenant,
	}))

	status, body := env.request(t, "POST", "/virtualmachines/list", fiber.Map{"id": tenantID})
	assert.Equal(t, http.StatusOK, status)
	var vms []db.VirtualMachine
	require.NoError(t, json.Unmarshal([]byte(body), &vms))
	require.Len(t, vms, 1)
	assert.Equal(t, "web", vms[0].Name)

	status, body = env.request(t, "POST", "/virtualmachines/list", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VM list request must include a tenant ID.", body)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.request(t, "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "404 - Not Found", body)
}
