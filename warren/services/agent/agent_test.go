package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warrenhq/warren/warren/virt"
	"github.com/warrenhq/warren/warren/vm"
)

func writeMeminfo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTotalMemoryGiB(t *testing.T) {
	path := writeMeminfo(t, "MemTotal:       65849676 kB\nMemFree:        12345678 kB\n")
	got, err := totalMemoryGiB(path)
	require.NoError(t, err)
	assert.Equal(t, int32(62), got)

	path = writeMeminfo(t, "MemFree:        12345678 kB\n")
	_, err = totalMemoryGiB(path)
	assert.Error(t, err)
}

func TestMainInterfaceAddrs(t *testing.T) {
	ifaces := []virt.GuestInterface{
		{Name: "lo", Addrs: []virt.GuestAddr{{Addr: "127.0.0.1", Prefix: 8}}},
		{Name: "eth0", Addrs: []virt.GuestAddr{
			{Addr: "10.1.0.5", Prefix: 24},
			{Addr: "fe80::1", Prefix: 64},
		}},
		{Name: "eth1", Addrs: []virt.GuestAddr{{Addr: "192.168.0.9", Prefix: 24}}},
	}
	assert.Equal(t, []string{"10.1.0.5/24", "fe80::1/64"}, mainInterfaceAddrs(ifaces))

	assert.Nil(t, mainInterfaceAddrs(nil))
}

func TestCollect(t *testing.T) {
	conn := virt.NewMockConn()
	conn.SetGuest(virt.Guest{
		Name:      "acme-web",
		MemoryKiB: 4 * 1024 * 1024,
		CPUs:      2,
		StateCode: 1,
		Interfaces: []virt.GuestInterface{
			{Name: "eth0", Addrs: []virt.GuestAddr{{Addr: "10.1.0.5", Prefix: 24}}},
		},
	})

	r := NewReporter(conn, "http://unused")
	r.meminfoPath = writeMeminfo(t, "MemTotal:       67108864 kB\n")

	report, err := r.Collect()
	require.NoError(t, err)

	hostname, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, hostname, report.Hostname)
	assert.Equal(t, int32(64), report.Memory)
	assert.Greater(t, report.CPU, int32(0))
	assert.Contains(t, []string{"x86_64", "aarch64"}, report.Arch)

	require.Len(t, report.VMs, 1)
	guest := report.VMs[0]
	assert.Equal(t, "acme-web", guest.Name)
	assert.Equal(t, int32(4), guest.Memory)
	assert.Equal(t, int32(2), guest.CPU)
	assert.Equal(t, "Running", guest.State)
	assert.Equal(t, []string{"10.1.0.5/24"}, guest.IPAddresses)
}

func TestPush(t *testing.T) {
	var received vm.StatsReport
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte("Hypervisor and all VMs updated successfully."))
	}))
	defer ts.Close()

	conn := virt.NewMockConn()
	r := NewReporter(conn, ts.URL)
	r.meminfoPath = writeMeminfo(t, "MemTotal:       16777216 kB\n")

	require.NoError(t, r.Push(context.Background()))
	assert.Equal(t, int32(16), received.Memory)
	assert.Empty(t, received.VMs)
}

func TestPushPropagatesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	conn := virt.NewMockConn()
	r := NewReporter(conn, ts.URL)
	r.meminfoPath = writeMeminfo(t, "MemTotal:       16777216 kB\n")

	err := r.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
