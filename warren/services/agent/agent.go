// Package agent implements the hypervisor reporter: a small daemon that
// walks the local libvirt inventory on an interval and pushes a stats
// report to the control plane, registering the host as a side effect of
// its first report.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/warrenhq/warren/warren/utils"
	"github.com/warrenhq/warren/warren/virt"
	"github.com/warrenhq/warren/warren/vm"
)

var serviceName = "agent"

// mainInterface is the guest NIC whose addresses get reported. Cloud
// images bring their first interface up as eth0.
const mainInterface = "eth0"

// Config holds the agent service configuration.
type Config struct {
	// StatsURL is the control-plane stats endpoint.
	StatsURL string
	// Interval is the reporting period in seconds.
	Interval int
}

// Service implements the warren service interface for the reporter.
type Service struct {
	Config *Config
}

// New creates a new agent Service.
func New(config any) (*Service, error) {
	return &Service{Config: config.(*Config)}, nil
}

// Start runs the reporter loop until SIGINT/SIGTERM.
func (svc *Service) Start() (int, error) {
	if err := utils.WritePidFile(serviceName, os.Getpid()); err != nil {
		slog.Error("Failed to write pid file", "err", err)
	}

	if err := launchService(svc.Config); err != nil {
		slog.Error("Failed to launch agent service", "err", err)
		return 0, err
	}

	return os.Getpid(), nil
}

// Stop stops the agent service.
func (svc *Service) Stop() error {
	return utils.StopProcess(serviceName)
}

// Status returns the agent service status.
func (svc *Service) Status() (string, error) {
	return "", nil
}

// Shutdown gracefully shuts down the agent service.
func (svc *Service) Shutdown() error {
	return svc.Stop()
}

// Reload reloads the agent service configuration.
func (svc *Service) Reload() error {
	return nil
}

func launchService(cfg *Config) error {
	slog.Info("Starting agent service",
		"stats_url", cfg.StatsURL,
		"interval", cfg.Interval,
		"cpu", cpuid.CPU.BrandName,
		"arch", vm.NormalizeArch(runtime.GOARCH))

	reporter := NewReporter(virt.NewLiveConn(), cfg.StatsURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(cfg.Interval) * time.Second)
	defer ticker.Stop()

	// Report immediately so a fresh host registers without waiting a
	// full interval.
	for {
		if err := reporter.Push(ctx); err != nil {
			slog.Error("Failed to push stats report", "err", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("agent service shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// Reporter collects and pushes hypervisor inventory.
type Reporter struct {
	conn   virt.Conn
	client *http.Client
	url    string

	// meminfoPath is /proc/meminfo in production, a fixture in tests.
	meminfoPath string
}

// NewReporter creates a Reporter pushing to url.
func NewReporter(conn virt.Conn, url string) *Reporter {
	return &Reporter{
		conn:        conn,
		client:      &http.Client{Timeout: 30 * time.Second},
		url:         url,
		meminfoPath: "/proc/meminfo",
	}
}

// Collect builds the stats report for this host.
func (r *Reporter) Collect() (vm.StatsReport, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return vm.StatsReport{}, fmt.Errorf("get hostname: %w", err)
	}

	memoryGiB, err := totalMemoryGiB(r.meminfoPath)
	if err != nil {
		return vm.StatsReport{}, err
	}

	guests, err := r.conn.Guests()
	if err != nil {
		return vm.StatsReport{}, fmt.Errorf("list guests: %w", err)
	}

	report := vm.StatsReport{
		Hostname: hostname,
		Memory:   memoryGiB,
		CPU:      int32(runtime.NumCPU()),
		Arch:     vm.NormalizeArch(runtime.GOARCH),
		VMs:      make([]vm.GuestReport, 0, len(guests)),
	}

	for _, guest := range guests {
		report.VMs = append(report.VMs, vm.GuestReport{
			Name:        guest.Name,
			Memory:      int32(guest.MemoryKiB / 1024 / 1024),
			CPU:         int32(guest.CPUs),
			State:       vm.DomainStateFromCode(uint32(guest.StateCode)).String(),
			IPAddresses: mainInterfaceAddrs(guest.Interfaces),
		})
	}
	return report, nil
}

// Push collects and POSTs one report.
func (r *Reporter) Push(ctx context.Context) error {
	report, err := r.Collect()
	if err != nil {
		return err
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal stats report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("push stats report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats endpoint returned %d", resp.StatusCode)
	}
	slog.Debug("Pushed stats report", "vms", len(report.VMs))
	return nil
}

// mainInterfaceAddrs returns eth0's addresses in "addr/prefix" form.
// Other interfaces (lo, secondary NICs) are not the control plane's
// concern.
func mainInterfaceAddrs(ifaces []virt.GuestInterface) []string {
	var addrs []string
	for _, iface := range ifaces {
		if iface.Name != mainInterface {
			continue
		}
		for _, addr := range iface.Addrs {
			addrs = append(addrs, fmt.Sprintf("%s/%d", addr.Addr, addr.Prefix))
		}
	}
	return addrs
}

// totalMemoryGiB reads the MemTotal line out of a meminfo file.
func totalMemoryGiB(path string) (int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal: %w", err)
		}
		return int32(kb / 1024 / 1024), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}
	return 0, fmt.Errorf("no MemTotal line in %s", path)
}
