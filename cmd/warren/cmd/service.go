package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warrenhq/warren/warren/service"
	"github.com/warrenhq/warren/warren/services/agent"
	"github.com/warrenhq/warren/warren/services/compute"
	"github.com/warrenhq/warren/warren/services/controlplane"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage Warren services",
}

var controlplaneCmd = &cobra.Command{
	Use:     "controlplane",
	Aliases: []string{"cp"},
	Short:   "Manage the controlplane service",
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Manage the compute node driver",
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage the hypervisor agent",
}

var controlplaneStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the controlplane service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Starting controlplane service...")

		if appConfig == nil {
			fmt.Println("Configuration not loaded")
			return
		}

		cp := appConfig.ControlPlane

		svc, err := service.New("controlplane", &controlplane.Config{
			Addr:        cp.Addr(),
			DatabaseURL: cp.DatabaseURL(),
			OVNAddr:     cp.OVN.Addr(),
			NATSEnabled: cp.NATS.Enabled,
			NATSURL:     cp.NATS.URL,
			Debug:       viper.GetBool("debug"),
		})

		if err != nil {
			fmt.Println("Error starting controlplane service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting controlplane service:", err)
		}
	},
}

var controlplaneStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the controlplane service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping controlplane service...")

		svc, err := service.New("controlplane", &controlplane.Config{})

		if err != nil {
			fmt.Println("Error stopping controlplane service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping controlplane service:", err)
			return
		}

		fmt.Println("Controlplane service stopped")
	},
}

var computeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the compute node driver",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Starting compute service...")

		if appConfig == nil {
			fmt.Println("Configuration not loaded")
			return
		}

		svc, err := service.New("compute", &compute.Config{
			Addr:        appConfig.Compute.Addr(),
			StoragePath: appConfig.Compute.StoragePath,
		})

		if err != nil {
			fmt.Println("Error starting compute service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting compute service:", err)
		}
	},
}

var computeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the compute node driver",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping compute service...")

		svc, err := service.New("compute", &compute.Config{})

		if err != nil {
			fmt.Println("Error stopping compute service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping compute service:", err)
			return
		}

		fmt.Println("Compute service stopped")
	},
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the hypervisor agent",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Starting agent service...")

		if appConfig == nil {
			fmt.Println("Configuration not loaded")
			return
		}

		svc, err := service.New("agent", &agent.Config{
			StatsURL: appConfig.Agent.StatsURL(),
			Interval: appConfig.Agent.Interval,
		})

		if err != nil {
			fmt.Println("Error starting agent service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting agent service:", err)
		}
	},
}

var agentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the hypervisor agent",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping agent service...")

		svc, err := service.New("agent", &agent.Config{})

		if err != nil {
			fmt.Println("Error stopping agent service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping agent service:", err)
			return
		}

		fmt.Println("Agent service stopped")
	},
}

func init() {

	viper.SetEnvPrefix("WARREN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.AutomaticEnv()

	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(controlplaneCmd)

	controlplaneCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	viper.BindEnv("debug", "WARREN_CONTROLPLANE_DEBUG")
	viper.BindPFlag("debug", controlplaneCmd.PersistentFlags().Lookup("debug"))

	controlplaneCmd.AddCommand(controlplaneStartCmd)
	controlplaneCmd.AddCommand(controlplaneStopCmd)

	serviceCmd.AddCommand(computeCmd)

	computeCmd.AddCommand(computeStartCmd)
	computeCmd.AddCommand(computeStopCmd)

	serviceCmd.AddCommand(agentCmd)

	agentCmd.AddCommand(agentStartCmd)
	agentCmd.AddCommand(agentStopCmd)
}
