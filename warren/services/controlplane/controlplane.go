// Package controlplane implements the warren north-bound API: tenants,
// VPCs, SSH keys, provider networks, VM scheduling and the hypervisor
// inventory sink, served over HTTP on :8080.
package controlplane

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/warrenhq/warren/warren/db"
	"github.com/warrenhq/warren/warren/events"
	"github.com/warrenhq/warren/warren/ovn"
	"github.com/warrenhq/warren/warren/utils"
	"go.uber.org/automaxprocs/maxprocs"
)

var serviceName = "controlplane"

// Config holds the controlplane service configuration.
type Config struct {
	// Addr is the host:port the API listens on.
	Addr string
	// DatabaseURL is the postgres connection string.
	DatabaseURL string
	// OVNAddr is the OVN northbound OVSDB listener (host:port).
	OVNAddr string
	// NATSEnabled turns on lifecycle event publication.
	NATSEnabled bool
	// NATSURL is the NATS server address.
	NATSURL string
	// Debug enables debug logging.
	Debug bool
	// DisableLogging silences the fiber request log (tests).
	DisableLogging bool
}

// Service implements the warren service interface for the control plane.
type Service struct {
	Config *Config
}

// New creates a new controlplane Service.
func New(config any) (*Service, error) {
	return &Service{Config: config.(*Config)}, nil
}

// Start runs the API server until SIGINT/SIGTERM.
func (svc *Service) Start() (int, error) {
	if err := utils.WritePidFile(serviceName, os.Getpid()); err != nil {
		slog.Error("Failed to write pid file", "err", err)
	}

	if err := launchService(svc.Config); err != nil {
		slog.Error("Failed to launch controlplane service", "err", err)
		return 0, err
	}

	return os.Getpid(), nil
}

// Stop stops the controlplane service.
func (svc *Service) Stop() error {
	return utils.StopProcess(serviceName)
}

// Status returns the controlplane service status.
func (svc *Service) Status() (string, error) {
	return "", nil
}

// Shutdown gracefully shuts down the controlplane service.
func (svc *Service) Shutdown() error {
	return svc.Stop()
}

// Reload reloads the controlplane service configuration.
func (svc *Service) Reload() error {
	return nil
}

func launchService(cfg *Config) error {
	slog.Info("Starting controlplane service", "addr", cfg.Addr, "ovn_addr", cfg.OVNAddr)

	// Adjust MAXPROCS if running under linux/cgroups quotas.
	undo, err := maxprocs.Set()
	if err != nil {
		slog.Warn("Failed to set GOMAXPROCS", "err", err)
	} else {
		defer undo()
	}

	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	var pub *events.Publisher
	if cfg.NATSEnabled {
		pub, err = events.Connect(cfg.NATSURL)
		if err != nil {
			// The bus is ambient infrastructure, never load-bearing.
			slog.Warn("Failed to connect to NATS, lifecycle events disabled", "url", cfg.NATSURL, "err", err)
		} else {
			defer pub.Close()
		}
	}

	srv := NewServer(store, ovn.NewLiveClient(cfg.OVNAddr), NewHTTPDispatcher(), pub)
	srv.Debug = cfg.Debug
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
		slog.Info("controlplane service shutting down")
		return app.Shutdown()
	}
}

// Server wires the API handlers to their collaborators. Tests construct
// it directly over mocks.
type Server struct {
	repo    db.Repository
	ovn     ovn.Client
	compute Dispatcher
	events  *events.Publisher

	Debug          bool
	DisableLogging bool
}

// NewServer creates a Server over the given collaborators. The events
// publisher may be nil.
func NewServer(repo db.Repository, ovnClient ovn.Client, compute Dispatcher, pub *events.Publisher) *Server {
	return &Server{repo: repo, ovn: ovnClient, compute: compute, events: pub}
}

// SetupRoutes builds the fiber application with the full route table.
func (s *Server) SetupRoutes() *fiber.App {
	var logLevel slog.Level
	if s.Debug {
		logLevel = slog.LevelDebug
	} else if s.DisableLogging {
		logLevel = slog.LevelError
	} else {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	app := fiber.New(fiber.Config{
		DisableStartupMessage: s.DisableLogging,
	})

	if !s.DisableLogging {
		app.Use(logger.New())
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Accept, Content-Type",
	}))

	app.Post("/tenant/create", s.createTenant)
	app.Post("/tenant/delete", s.deleteTenant)
	app.Get("/tenants/list", s.listTenants)
	app.Post("/vpc/create", s.createVPC)
	app.Post("/vpc/delete", s.deleteVPC)
	app.Post("/vpcs/list", s.listVPCs)
	app.Get("/ports/list", s.listPorts)
	app.Post("/hypervisor/stats", s.hypervisorStats)
	app.Get("/hypervisors/list", s.listHypervisors)
	app.Post("/ssh_pub_key/create", s.createSSHPubKey)
	app.Post("/ssh_pub_key/delete", s.deleteSSHPubKey)
	app.Post("/ssh_pub_keys/list", s.listSSHPubKeys)
	app.Post("/virtualmachine/create", s.createVirtualMachine)
	app.Post("/virtualmachine/delete", s.deleteVirtualMachine)
	app.Post("/virtualmachines/list", s.listVirtualMachines)
	app.Post("/provider_network/create", s.createProviderNetwork)
	app.Post("/provider_network/delete", s.deleteProviderNetwork)
	app.Get("/provider_networks/list", s.listProviderNetworks)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("404 - Not Found")
	})

	return app
}
