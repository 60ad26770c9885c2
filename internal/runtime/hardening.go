package runtime

// Hardening bundles the seccomp, capability-drop, masked-path, hostname,
// and network-mode restrictions applied at sandbox create time (spec.md
// §6 External Interfaces).
type Hardening struct {
	Enabled        bool
	SeccompProfile []byte // inline JSON profile; at minimum ptrace in an errno rule
	MaxMemoryMB    int64
	MaxCPUs        float64
	MaxPids        int64
	MaxOpenFiles   uint64

	WANEnabled    bool
	WANNetwork    string
	WANDNSServers []string

	Hostname string
}

// MaskedPaths is handed to the runtime's native masked-paths option
// (HostConfig.MaskedPaths) when hardening is enabled; no bind mounts are
// used.
var MaskedPaths = []string{
	"/proc/version",
	"/proc/version_signature",
	"/proc/cpuinfo",
	"/proc/meminfo",
	"/proc/kcore",
	"/proc/keys",
	"/proc/timer_list",
	"/proc/sched_debug",
	"/proc/kallsyms",
	"/proc/modules",
	"/sys/firmware",
	"/sys/kernel/security",
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// ReadonlyPaths are bind-remounted read-only inside the sandbox.
var ReadonlyPaths = []string{
	"/proc/bus",
	"/proc/fs",
	"/proc/irq",
	"/proc/sys",
	"/proc/sysrq-trigger",
}

// CapAdd is the minimal set re-added after CapDrop=ALL.
var CapAdd = []string{"CHOWN", "DAC_OVERRIDE", "FOWNER", "SETGID", "SETUID"}

// WorkingDir is the fixed path every sandbox stages inputs into and
// harvests outputs from.
const WorkingDir = "/mnt/data"

// Labels builds the canonical sandbox label set (spec.md §6).
func Labels(sessionID, language, createdAtISO8601 string, replMode, wanAccess bool) map[string]string {
	return map[string]string{
		"managed":     "true",
		"type":        "execution",
		"session-id":  sessionID,
		"language":    language,
		"created-at":  createdAtISO8601,
		"repl-mode":   boolStr(replMode),
		"wan-access":  boolStr(wanAccess),
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
