package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/logging"
)

// ImageResolverConfig names the fallback order ResolveImage walks.
type ImageResolverConfig struct {
	Configured map[string]string // language -> explicit override, checked first
	LocalPrefix  string          // e.g. "code-interpreter"
	PublicPrefix string          // e.g. "ghcr.io/usnavy13/librecodeinterpreter"
}

// DockerAdapter implements Adapter against a local Docker Engine.
type DockerAdapter struct {
	cli      *client.Client
	resolver ImageResolverConfig
}

// NewDockerAdapter connects to the Docker daemon at dockerHost, negotiating
// the API version the way the Sandbox-v2 executor does.
func NewDockerAdapter(dockerHost string, resolver ImageResolverConfig) (*DockerAdapter, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithHost(dockerHost),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, apierr.NewRuntimeUnavailable(err)
	}
	return &DockerAdapter{cli: cli, resolver: resolver}, nil
}

// Close releases the underlying Docker client's connections.
func (d *DockerAdapter) Close() error { return d.cli.Close() }

// ResolveImage implements Adapter.ResolveImage.
func (d *DockerAdapter) ResolveImage(ctx context.Context, language string) (string, error) {
	tried := make([]string, 0, 3)
	seen := make(map[string]bool, 3)

	candidates := make([]string, 0, 3)
	if ref, ok := d.resolver.Configured[language]; ok && ref != "" {
		candidates = append(candidates, ref)
	}
	if d.resolver.LocalPrefix != "" {
		candidates = append(candidates, fmt.Sprintf("%s/%s:latest", d.resolver.LocalPrefix, language))
	}
	if d.resolver.PublicPrefix != "" {
		candidates = append(candidates, fmt.Sprintf("%s/%s:latest", d.resolver.PublicPrefix, language))
	}

	for _, ref := range candidates {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		tried = append(tried, ref)

		if _, _, err := d.cli.ImageInspectWithRaw(ctx, ref); err == nil {
			return ref, nil
		}
	}

	return "", apierr.NewImageUnavailable(tried)
}

// Create implements Adapter.Create.
func (d *DockerAdapter) Create(ctx context.Context, spec CreateSpec) (*Sandbox, error) {
	name := fmt.Sprintf("ci-exec-%s-%s", shortSessionID(spec.SessionID), uuid.New().String()[:8])

	cmd := spec.Command
	if len(cmd) == 0 {
		cmd = []string{"tail", "-f", "/dev/null"}
	}

	hostCfg, err := d.buildHostConfig(spec)
	if err != nil {
		return nil, apierr.NewSandboxUnavailable(err)
	}

	netCfg := &network.NetworkingConfig{}
	if spec.Hardening.WANEnabled && spec.Hardening.WANNetwork != "" {
		netCfg.EndpointsConfig = map[string]*network.EndpointSettings{
			spec.Hardening.WANNetwork: {},
		}
	}

	containerCfg := &container.Config{
		Image:        spec.Image,
		WorkingDir:   spec.WorkingDir,
		Cmd:          cmd,
		Env:          flattenEnv(spec.Env),
		Hostname:     spec.Hardening.Hostname,
		Domainname:   "",
		Labels:       spec.Labels,
		AttachStdin:  spec.Interactive,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    spec.Interactive,
		StdinOnce:    spec.Interactive,
		Tty:          false,
	}

	created, err := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return nil, apierr.NewSandboxUnavailable(err)
	}

	sb := &Sandbox{
		ID:        created.ID,
		Name:      name,
		Language:  spec.Language,
		ImageRef:  spec.Image,
		Labels:    spec.Labels,
		CreatedAt: time.Now().UTC(),
	}
	logging.Sandbox(sb.ID, spec.SessionID, spec.Language).Debug("sandbox created")
	return sb, nil
}

func (d *DockerAdapter) buildHostConfig(spec CreateSpec) (*container.HostConfig, error) {
	h := spec.Hardening
	if h.MaxMemoryMB <= 0 || h.MaxCPUs <= 0 || h.MaxPids <= 0 || h.MaxOpenFiles == 0 {
		return nil, fmt.Errorf("resource ceilings must be configured (memory=%d cpus=%v pids=%d open_files=%d)",
			h.MaxMemoryMB, h.MaxCPUs, h.MaxPids, h.MaxOpenFiles)
	}

	memBytes := h.MaxMemoryMB * 1024 * 1024
	nanoCPUs := int64(h.MaxCPUs * 1_000_000_000)
	pidsLimit := h.MaxPids
	ofiles := int64(h.MaxOpenFiles)

	securityOpt := []string{"no-new-privileges:true"}
	var maskedPaths, readonlyPaths []string
	if h.Enabled {
		profile := h.SeccompProfile
		if len(profile) == 0 {
			profile = DefaultSeccompProfile()
		}
		securityOpt = append(securityOpt, "seccomp="+string(profile))
		maskedPaths = MaskedPaths
		readonlyPaths = ReadonlyPaths
	}

	networkMode := container.NetworkMode("none")
	var dns []string
	var dnsSearch []string
	if h.WANEnabled && h.WANNetwork != "" {
		networkMode = container.NetworkMode(h.WANNetwork)
		dns = h.WANDNSServers
		dnsSearch = []string{} // forced empty to avoid leaking internal suffixes
	}

	mounts := []mount.Mount{}

	return &container.HostConfig{
		Mounts:         mounts,
		ReadonlyRootfs: false, // uploads land under WorkingDir
		SecurityOpt:    securityOpt,
		CapDrop:        []string{"ALL"},
		CapAdd:         CapAdd,
		MaskedPaths:    maskedPaths,
		ReadonlyPaths:  readonlyPaths,
		NetworkMode:    networkMode,
		DNS:            dns,
		DNSSearch:      dnsSearch,
		Resources: container.Resources{
			Memory:     memBytes,
			MemorySwap: memBytes,
			NanoCPUs:   nanoCPUs,
			PidsLimit:  &pidsLimit,
			Ulimits: []*dockertypes.Ulimit{
				{Name: "nofile", Soft: ofiles, Hard: ofiles},
			},
		},
	}, nil
}

// Start implements Adapter.Start: polls up to 2s at 50ms intervals,
// requiring three consecutive "running" reads.
func (d *DockerAdapter) Start(ctx context.Context, sb *Sandbox) error {
	if err := d.cli.ContainerStart(ctx, sb.ID, container.StartOptions{}); err != nil {
		return apierr.NewSandboxUnavailable(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	stable := 0
	for time.Now().Before(deadline) {
		inspect, err := d.cli.ContainerInspect(ctx, sb.ID)
		if err == nil && inspect.State != nil && inspect.State.Running {
			stable++
			if stable >= 3 {
				return nil
			}
		} else {
			stable = 0
		}

		select {
		case <-ctx.Done():
			return apierr.NewCancelled()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return apierr.NewSandboxUnavailable(fmt.Errorf("sandbox %s did not reach a stable running state within 2s", sb.ID))
}

// Stop implements Adapter.Stop.
func (d *DockerAdapter) Stop(ctx context.Context, sb *Sandbox, graceSeconds int) error {
	timeout := graceSeconds
	if err := d.cli.ContainerStop(ctx, sb.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}

// Remove implements Adapter.Remove.
func (d *DockerAdapter) Remove(ctx context.Context, sb *Sandbox, force bool) error {
	if err := d.cli.ContainerRemove(ctx, sb.ID, container.RemoveOptions{Force: force}); err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}

// ListByLabel implements Adapter.ListByLabel.
func (d *DockerAdapter) ListByLabel(ctx context.Context, kv map[string]string) ([]*Sandbox, error) {
	args := filters.NewArgs()
	for k, v := range kv {
		args.Add("label", fmt.Sprintf("%s=%s", k, v))
	}

	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, apierr.NewRuntimeUnavailable(err)
	}

	out := make([]*Sandbox, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, &Sandbox{
			ID:        c.ID,
			Name:      name,
			ImageRef:  c.Image,
			Labels:    c.Labels,
			Language:  c.Labels["language"],
			CreatedAt: time.Unix(c.Created, 0).UTC(),
		})
	}
	return out, nil
}

func shortSessionID(sessionID string) string {
	if len(sessionID) > 12 {
		return sessionID[:12]
	}
	return sessionID
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
