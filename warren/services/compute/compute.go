// Package compute implements the per-hypervisor node driver: an HTTP API
// on :3000 that provisions and tears down local VMs on the control
// plane's behalf, driving libvirt, qemu-img and OVS.
package compute

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/warrenhq/warren/warren/utils"
	"github.com/warrenhq/warren/warren/virt"
	"github.com/warrenhq/warren/warren/vm"
)

var serviceName = "compute"

// Config holds the compute service configuration.
type Config struct {
	// Addr is the host:port the node API listens on.
	Addr string
	// StoragePath is the libvirt image directory, one subdirectory per VM.
	StoragePath string
	// DisableLogging silences the fiber request log (tests).
	DisableLogging bool
}

// Service implements the warren service interface for the node driver.
type Service struct {
	Config *Config
}

// New creates a new compute Service.
func New(config any) (*Service, error) {
	return &Service{Config: config.(*Config)}, nil
}

// Start runs the node API until SIGINT/SIGTERM.
func (svc *Service) Start() (int, error) {
	if err := utils.WritePidFile(serviceName, os.Getpid()); err != nil {
		slog.Error("Failed to write pid file", "err", err)
	}

	if err := launchService(svc.Config); err != nil {
		slog.Error("Failed to launch compute service", "err", err)
		return 0, err
	}

	return os.Getpid(), nil
}

// Stop stops the compute service.
func (svc *Service) Stop() error {
	return utils.StopProcess(serviceName)
}

// Status returns the compute service status.
func (svc *Service) Status() (string, error) {
	return "", nil
}

// Shutdown gracefully shuts down the compute service.
func (svc *Service) Shutdown() error {
	return svc.Stop()
}

// Reload reloads the compute service configuration.
func (svc *Service) Reload() error {
	return nil
}

func launchService(cfg *Config) error {
	slog.Info("Starting compute service", "addr", cfg.Addr, "storage_path", cfg.StoragePath)

	srv := NewServer(virt.NewLiveConn(), ExecRunner{}, cfg.StoragePath)
	srv.DisableLogging = cfg.DisableLogging
	app := srv.SetupRoutes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		slog.Info("compute service shutting down")
		return app.Shutdown()
	}
}

// Server handles the node API. Tests construct it over a mock libvirt
// connection and a recording runner.
type Server struct {
	conn        virt.Conn
	runner      Runner
	storagePath string

	// arch is the normalized host architecture; overridable in tests.
	arch string

	DisableLogging bool
}

// NewServer creates a Server over the given collaborators.
func NewServer(conn virt.Conn, runner Runner, storagePath string) *Server {
	return &Server{
		conn:        conn,
		runner:      runner,
		storagePath: storagePath,
		arch:        vm.NormalizeArch(runtime.GOARCH),
	}
}

// SetupRoutes builds the fiber application with the node route table.
func (s *Server) SetupRoutes() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: s.DisableLogging,
	})

	if !s.DisableLogging {
		app.Use(logger.New())
	}

	app.Post("/virtualmachine/create", s.createVM)
	app.Post("/virtualmachine/delete", s.deleteVM)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("404 - Not Found")
	})

	return app
}

func (s *Server) createVM(c *fiber.Ctx) error {
	var req vm.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid request body: %v", err))
	}

	if !vm.SupportedOS(req.OS) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid OS specified. Only 'rhel9' and 'fedora41' are supported.")
	}

	specs, _ := json.Marshal(req)

	if err := s.provision(req); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to create VM: %v", err))
	}
	return c.SendString(fmt.Sprintf("VM creation started successfully with specs: %s", specs))
}

// provision builds the VM on this host: root disk, seed ISO, libvirt
// domain, then its network attachment.
func (s *Server) provision(req vm.CreateRequest) error {
	domainName := vm.MakeInstanceName(req.Tenant, req.Name).String()

	xml, err := domainXML(s.arch, domainParams{
		DomainName: domainName,
		MemoryKiB:  req.Memory * 1024,
		CPU:        req.CPU,
		MacAddr:    req.MacAddr,
		DiskPath:   s.diskPath(req.Name),
		SeedPath:   s.seedPath(req.Name),
		TargetDev:  domainName,
	})
	if err != nil {
		return err
	}

	if err := s.createDisk(req.OS, req.Name, req.Disk); err != nil {
		return err
	}
	if err := s.generateSeed(req.SSHPubKey, req.Name); err != nil {
		return err
	}
	if err := s.conn.DefineAndStart(xml); err != nil {
		return err
	}

	switch req.Networking {
	case vm.NetworkingL2Tenant:
		return s.attachTenantPort(req.Tenant, req.Name)
	case vm.NetworkingL2Bridged:
		if req.Network == "" {
			return fmt.Errorf("network name is required for l2-bridged networking")
		}
		return s.attachProviderPort(req.Tenant, req.Name, req.Network)
	}
	return nil
}

func (s *Server) deleteVM(c *fiber.Ctx) error {
	var req vm.DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Invalid request body: %v", err))
	}

	payload, _ := json.Marshal(req)

	if err := s.teardown(req); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("Failed to delete VM: %v", err))
	}
	return c.SendString(fmt.Sprintf("VM with name '%s' deleted successfully.", payload))
}

// teardown removes the VM from this host. Disk and port cleanup failures
// are logged but do not fail the request; the domain going away is what
// the control plane needs.
func (s *Server) teardown(req vm.DeleteRequest) error {
	domainName := vm.MakeInstanceName(req.Tenant, req.Name).String()

	if err := s.conn.Lookup(domainName); err != nil {
		return err
	}

	if err := s.removeVMDir(req.Name); err != nil {
		slog.Warn("Failed to remove VM directory", "name", req.Name, "err", err)
	}

	if err := s.conn.Remove(domainName); err != nil {
		return err
	}

	if err := s.detachPort(req.Tenant, req.Name); err != nil {
		slog.Warn("Failed to delete OVS port", "name", req.Name, "err", err)
	}
	return nil
}
