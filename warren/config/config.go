package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. One file serves every
// role; a node only reads the sections for the services it runs.
type Config struct {
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane"`
	Compute      ComputeConfig      `mapstructure:"compute"`
	Agent        AgentConfig        `mapstructure:"agent"`
}

// ControlPlaneConfig holds the API server, database and OVN northbound
// settings for the control plane service.
type ControlPlaneConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`

	OVN  OVNConfig  `mapstructure:"ovn"`
	NATS NATSConfig `mapstructure:"nats"`
}

// OVNConfig points at the OVN northbound OVSDB listener.
type OVNConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NATSConfig holds the optional lifecycle event bus settings. Events are
// fire-and-forget; the control plane runs fine with Enabled false.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// ComputeConfig holds the compute-node driver settings.
type ComputeConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	StoragePath string `mapstructure:"storage_path"`
}

// AgentConfig holds the reporter settings: where to push hypervisor stats
// and how often.
type AgentConfig struct {
	Protocol string `mapstructure:"protocol"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Path     string `mapstructure:"path"`
	Interval int    `mapstructure:"interval"`
}

// DatabaseURL returns the postgres connection string for the control plane.
func (c ControlPlaneConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Addr returns the host:port the API server listens on.
func (c ControlPlaneConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr returns the host:port of the OVN northbound listener.
func (o OVNConfig) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Addr returns the host:port the compute driver listens on.
func (c ComputeConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StatsURL returns the control-plane endpoint the agent pushes reports to.
func (a AgentConfig) StatsURL() string {
	return fmt.Sprintf("%s://%s:%d%s", a.Protocol, a.Host, a.Port, a.Path)
}

func setDefaults() {
	viper.SetDefault("controlplane.host", "0.0.0.0")
	viper.SetDefault("controlplane.port", 8080)
	viper.SetDefault("controlplane.db_host", "localhost")
	viper.SetDefault("controlplane.db_port", 5432)
	viper.SetDefault("controlplane.db_name", "warren")
	viper.SetDefault("controlplane.db_user", "warren")
	viper.SetDefault("controlplane.ovn.host", "127.0.0.1")
	viper.SetDefault("controlplane.ovn.port", 6641)
	viper.SetDefault("controlplane.nats.enabled", false)
	viper.SetDefault("controlplane.nats.url", "nats://127.0.0.1:4222")
	viper.SetDefault("compute.host", "0.0.0.0")
	viper.SetDefault("compute.port", 3000)
	viper.SetDefault("compute.storage_path", "/var/lib/libvirt/images")
	viper.SetDefault("agent.protocol", "http")
	viper.SetDefault("agent.host", "localhost")
	viper.SetDefault("agent.port", 8080)
	viper.SetDefault("agent.path", "/hypervisor/stats")
	viper.SetDefault("agent.interval", 60)
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Set environment variable prefix
	viper.SetEnvPrefix("WARREN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Try to load config file if it exists
	if configPath != "" {
		// Check if file exists
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
			viper.SetConfigType("yaml")

			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Config file not found: %s, using environment variables and defaults\n", configPath)
		}
	}

	// Create config struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
