package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warrenhq/warren/warren/utils"
	"github.com/warrenhq/warren/warren/vm"
)

// Default cloud image URLs per supported OS. RHEL images sit behind a
// subscription, so rhel9 always needs an explicit --url.
var defaultImageURLs = map[string]string{
	"fedora41": "https://download.fedoraproject.org/pub/fedora/linux/releases/41/Cloud/x86_64/images/Fedora-Cloud-Base-Generic-41-1.4.x86_64.qcow2",
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage base images on a compute node",
}

var imageFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a base image into the storage directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		osName := viper.GetString("os")
		if !vm.SupportedOS(osName) {
			return fmt.Errorf("unsupported os %q, supported: %s", osName, strings.Join(vm.SupportedOSes, ", "))
		}

		url := viper.GetString("url")
		if url == "" {
			url = defaultImageURLs[osName]
		}
		if url == "" {
			return fmt.Errorf("no default image URL for %q, pass --url", osName)
		}

		storagePath := "/var/lib/libvirt/images"
		if appConfig != nil && appConfig.Compute.StoragePath != "" {
			storagePath = appConfig.Compute.StoragePath
		}

		// The compute driver clones VM disks from "{OS}-base.qcow2".
		dest := filepath.Join(storagePath, strings.ToUpper(osName)+"-base.qcow2")

		fmt.Printf("Fetching %s image to %s\n", osName, dest)
		return utils.DownloadFileWithProgress(url, osName+" base image", dest, 0)
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)

	imageFetchCmd.Flags().String("os", "", "OS image to fetch (rhel9, fedora41)")
	viper.BindEnv("os", "WARREN_IMAGE_OS")
	viper.BindPFlag("os", imageFetchCmd.Flags().Lookup("os"))

	imageFetchCmd.Flags().String("url", "", "Image URL (overrides the built-in default)")
	viper.BindEnv("url", "WARREN_IMAGE_URL")
	viper.BindPFlag("url", imageFetchCmd.Flags().Lookup("url"))

	imageCmd.AddCommand(imageFetchCmd)
}
