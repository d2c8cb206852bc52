package compute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warrenhq/warren/warren/virt"
	"github.com/warrenhq/warren/warren/vm"
)

// mockRunner records host commands and can fail selected ones.
type mockRunner struct {
	calls [][]string
	fail  map[string]error // keyed by "name subcommand"
}

func newMockRunner() *mockRunner {
	return &mockRunner{fail: make(map[string]error)}
}

func (m *mockRunner) Run(name string, args ...string) error {
	m.calls = append(m.calls, append([]string{name}, args...))
	if len(args) > 0 {
		if err, ok := m.fail[name+" "+args[0]]; ok {
			return err
		}
	}
	return nil
}

func (m *mockRunner) commandLines() []string {
	lines := make([]string, 0, len(m.calls))
	for _, call := range m.calls {
		lines = append(lines, strings.Join(call, " "))
	}
	return lines
}

var _ Runner = (*mockRunner)(nil)

type nodeEnv struct {
	app     *fiber.App
	conn    *virt.MockConn
	runner  *mockRunner
	storage string
}

func newNodeEnv(t *testing.T) *nodeEnv {
	t.Helper()
	conn := virt.NewMockConn()
	runner := newMockRunner()
	storage := t.TempDir()
	srv := NewServer(conn, runner, storage)
	srv.DisableLogging = true
	srv.arch = "x86_64"
	return &nodeEnv{app: srv.SetupRoutes(), conn: conn, runner: runner, storage: storage}
}

func (e *nodeEnv) request(t *testing.T, path string, payload any) (int, string) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func createReq() vm.CreateRequest {
	return vm.CreateRequest{
		Name:       "web",
		Memory:     4096,
		CPU:        2,
		OS:         "fedora41",
		SSHPubKey:  "ssh-ed25519 AAAA test@example",
		Disk:       20,
		Tenant:     "acme",
		MacAddr:    "52:54:00:aa:bb:cc",
		Networking: vm.NetworkingL2Tenant,
	}
}

func TestCreateVMTenantNetworking(t *testing.T) {
	env := newNodeEnv(t)

	status, body := env.request(t, "/virtualmachine/create", createReq())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "VM creation started successfully with specs:")
	assert.Contains(t, body, `"name":"web"`)

	// Domain defined under the tenant-prefixed name.
	require.NoError(t, env.conn.Lookup("acme-web"))

	// Disk cloned from the uppercased base image, then grown.
	lines := env.runner.commandLines()
	base := filepath.Join(env.storage, "FEDORA41-base.qcow2")
	disk := filepath.Join(env.storage, "web", "web.qcow2")
	assert.Contains(t, lines, "qemu-img convert -f qcow2 -O qcow2 "+base+" "+disk)
	assert.Contains(t, lines, "qemu-img resize "+disk+" 20G")

	// Port on the integration bridge, bound to the logical port name.
	assert.Contains(t, lines, "ovs-vsctl add-port br-int acme-web external_ids:iface-id=acme-web")
	assert.Contains(t, lines, "ovs-vsctl set Interface acme-web external_ids:iface-id=acme-web")

	// Seed ISO written into the VM directory.
	info, err := os.Stat(filepath.Join(env.storage, "web", "seed.iso"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCreateVMBridgedNetworking(t *testing.T) {
	env := newNodeEnv(t)

	req := createReq()
	req.Networking = vm.NetworkingL2Bridged
	req.Network = "100"
	status, _ := env.request(t, "/virtualmachine/create", req)
	assert.Equal(t, http.StatusOK, status)

	lines := env.runner.commandLines()
	assert.Contains(t, lines, "ovs-vsctl add-port br-vlan100 acme-web")
	for _, line := range lines {
		assert.NotContains(t, line, "br-int", "bridged VMs must not touch the integration bridge")
	}
}

func TestCreateVMBridgedWithoutNetwork(t *testing.T) {
	env := newNodeEnv(t)

	req := createReq()
	req.Networking = vm.NetworkingL2Bridged
	status, body := env.request(t, "/virtualmachine/create", req)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "network name is required")
}

func TestCreateVMRejectsUnknownOS(t *testing.T) {
	env := newNodeEnv(t)

	req := createReq()
	req.OS = "plan9"
	status, body := env.request(t, "/virtualmachine/create", req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OS specified. Only 'rhel9' and 'fedora41' are supported.", body)
}

func TestCreateVMDiskFailure(t *testing.T) {
	env := newNodeEnv(t)
	env.runner.fail["qemu-img convert"] = fmt.Errorf("base image missing")

	status, body := env.request(t, "/virtualmachine/create", createReq())
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "Failed to create VM:")
	assert.Contains(t, body, "base image missing")
}

func TestDeleteVM(t *testing.T) {
	env := newNodeEnv(t)

	status, _ := env.request(t, "/virtualmachine/create", createReq())
	require.Equal(t, http.StatusOK, status)

	status, body := env.request(t, "/virtualmachine/delete",
		vm.DeleteRequest{Name: "web", Tenant: "acme"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `VM with name '{"name":"web","tenant":"acme"}' deleted successfully.`, body)

	assert.Error(t, env.conn.Lookup("acme-web"), "domain should be undefined")
	assert.Contains(t, env.runner.commandLines(), "ovs-vsctl del-port br-int acme-web")

	_, err := os.Stat(filepath.Join(env.storage, "web"))
	assert.True(t, os.IsNotExist(err), "VM directory should be removed")
}

func TestDeleteVMMissingDomain(t *testing.T) {
	env := newNodeEnv(t)

	status, body := env.request(t, "/virtualmachine/delete",
		vm.DeleteRequest{Name: "ghost", Tenant: "acme"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "Failed to delete VM:")
}

func TestDomainXML(t *testing.T) {
	params := domainParams{
		DomainName: "acme-web",
		MemoryKiB:  4096 * 1024,
		CPU:        2,
		MacAddr:    "52:54:00:aa:bb:cc",
		DiskPath:   "/var/lib/libvirt/images/web/web.qcow2",
		SeedPath:   "/var/lib/libvirt/images/web/seed.iso",
		TargetDev:  "acme-web",
	}

	xml, err := domainXML("x86_64", params)
	require.NoError(t, err)
	assert.Contains(t, xml, "<name>acme-web</name>")
	assert.Contains(t, xml, "machine='q35'")
	assert.Contains(t, xml, "<memory unit='KiB'>4194304</memory>")
	assert.Contains(t, xml, "mac address='52:54:00:aa:bb:cc'")

	xml, err = domainXML("aarch64", params)
	require.NoError(t, err)
	assert.Contains(t, xml, "machine='virt-7.2'")
	assert.Contains(t, xml, "firmware='efi'")
	assert.Contains(t, xml, "<feature enabled='no' name='secure-boot'/>")
	assert.Contains(t, xml, "<gic version='2'/>")

	_, err = domainXML("riscv64", params)
	assert.Error(t, err)
}
