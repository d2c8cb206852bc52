package vm

// NormalizeArch maps a Go runtime architecture name to the hypervisor
// naming the scheduler uses. Unknown values pass through unchanged and
// fail the scheduler's architecture check instead.
func NormalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}
