// Package config holds the typed, env-driven configuration structs consumed
// by the assembler. Reading real values out of the process environment is
// the named external boundary; these constructors only fill already-typed
// defaults the way the caller's resolved env values override them.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Languages is the fixed set of language tags the pool and image resolver
// recognize.
var Languages = []string{"py", "js", "ts", "go", "java", "c", "cpp", "php", "rs", "r", "f90", "d"}

// RuntimeConfig configures the Runtime Adapter's Docker backend.
type RuntimeConfig struct {
	DockerHost       string
	APIVersionNegot  bool
	SeccompProfile   string // path to the JSON seccomp profile, or "" for the built-in default
	WANNetworkName   string
	WANDNSServers    []string
	Hostname         string
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DockerHost:      envOr("DOCKER_HOST", "unix:///var/run/docker.sock"),
		APIVersionNegot: true,
		SeccompProfile:  os.Getenv("SANDBOX_SECCOMP_PROFILE"),
		WANNetworkName:  os.Getenv("SANDBOX_WAN_NETWORK"),
		WANDNSServers:   splitCSV(envOr("SANDBOX_WAN_DNS", "8.8.8.8,1.1.1.1")),
		Hostname:        envOr("SANDBOX_HOSTNAME", "sandbox"),
	}
}

// SandboxConfig configures the Sandbox Manager's hardening and resource
// ceilings. The core refuses to create a sandbox if any ceiling is unset
// (spec.md §5), so these defaults are never zero.
type SandboxConfig struct {
	MaxMemoryMB   int64
	MaxCPUs       float64 // translated to nano-cpus at create time
	MaxPids       int64
	MaxOpenFiles  uint64
	ImagePrefixLocal  string
	ImagePrefixPublic string
	EnableHardening   bool
	EnableWAN         bool
}

func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		MaxMemoryMB:       envOrInt64("SANDBOX_MAX_MEMORY_MB", 256),
		MaxCPUs:           envOrFloat("SANDBOX_MAX_CPUS", 0.5),
		MaxPids:           envOrInt64("SANDBOX_MAX_PIDS", 64),
		MaxOpenFiles:      uint64(envOrInt64("SANDBOX_MAX_OPEN_FILES", 256)),
		ImagePrefixLocal:  envOr("SANDBOX_IMAGE_PREFIX_LOCAL", "code-interpreter"),
		ImagePrefixPublic: envOr("SANDBOX_IMAGE_PREFIX_PUBLIC", "ghcr.io/usnavy13/librecodeinterpreter"),
		EnableHardening:   envOrBool("SANDBOX_ENABLE_HARDENING", true),
		EnableWAN:         envOrBool("SANDBOX_ENABLE_WAN", false),
	}
}

// PoolTargetSizes maps a language tag to its pre-warmed pool bucket size.
// A zero entry is a legal "no warm pool for this language" configuration.
type PoolTargetSizes map[string]int

// PoolConfig configures the per-language pool buckets.
type PoolConfig struct {
	TargetSizes     PoolTargetSizes
	WarmupOnStartup bool
	RefillInterval  time.Duration
	WarmupConcurrency int
	DestructionQueueSize int
}

func DefaultPoolConfig() PoolConfig {
	sizes := make(PoolTargetSizes, len(Languages))
	for _, lang := range Languages {
		sizes[lang] = int(envOrInt64("POD_POOL_"+strings.ToUpper(lang), 0))
	}
	return PoolConfig{
		TargetSizes:          sizes,
		WarmupOnStartup:      envOrBool("POOL_WARMUP_ON_STARTUP", true),
		RefillInterval:       envOrDuration("POOL_REFILL_INTERVAL", 2*time.Second),
		WarmupConcurrency:    int(envOrInt64("POOL_WARMUP_CONCURRENCY", 8)),
		DestructionQueueSize: int(envOrInt64("POOL_DESTRUCTION_QUEUE_SIZE", 1024)),
	}
}

// HealthConfig configures probe thresholds and result cache TTL.
type HealthConfig struct {
	KVThreshold      time.Duration
	ObjectStoreThreshold time.Duration
	ClusterThreshold time.Duration
	CacheTTL         time.Duration
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		KVThreshold:          1000 * time.Millisecond,
		ObjectStoreThreshold: 2000 * time.Millisecond,
		ClusterThreshold:     3000 * time.Millisecond,
		CacheTTL:             30 * time.Second,
	}
}

// ObjectStoreConfig configures the S3-compatible object-store client.
type ObjectStoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for MinIO-style S3-compatible deployments
	UsePathStyle bool
}

func DefaultObjectStoreConfig() ObjectStoreConfig {
	return ObjectStoreConfig{
		Bucket:       envOr("OBJECT_STORE_BUCKET", "code-interpreter-files"),
		Region:       envOr("OBJECT_STORE_REGION", "us-east-1"),
		Endpoint:     os.Getenv("OBJECT_STORE_ENDPOINT"),
		UsePathStyle: envOrBool("OBJECT_STORE_PATH_STYLE", true),
	}
}

// RedisConfig configures the kv backend shared by the health probe and the
// health-result cache.
type RedisConfig struct {
	URL string
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{URL: envOr("REDIS_URL", "redis://localhost:6379/0")}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envOrFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOrBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
