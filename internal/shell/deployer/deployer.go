// Package deployer drives a deployment end to end: precondition checks,
// filesystem and network preparation, settings validation, stack teardown,
// image refresh, startup and post-start verification. Control flow is a
// single linear pass with early exit on the first fatal error; recovery is
// re-running the driver.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openrdr/dvup/internal/core/compose"
	"github.com/openrdr/dvup/internal/core/envfile"
	"github.com/openrdr/dvup/internal/core/fsplan"
	"github.com/openrdr/dvup/internal/core/stack"
	"github.com/openrdr/dvup/internal/core/traefik"
	"github.com/openrdr/dvup/internal/shell/console"
	"github.com/openrdr/dvup/internal/shell/docker"
	"github.com/openrdr/dvup/internal/shell/history"
	"github.com/openrdr/dvup/internal/shell/probe"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds everything one deployment run needs.
type Config struct {
	// Project names the stack instance; it prefixes every container,
	// volume and network name.
	Project string

	// SettingsPath is the key=value settings file (traefikhost etc).
	SettingsPath string
	// ComposePath is the stack definition file.
	ComposePath string

	// DataRoot, SecretsDir and ScriptsDir feed the filesystem plan.
	DataRoot   string
	SecretsDir string
	ScriptsDir string

	// ReadyTimeout bounds the post-start verification poll.
	ReadyTimeout time.Duration
	// PollInterval is the delay between status polls.
	PollInterval time.Duration
}

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Preparer applies a filesystem plan.
type Preparer interface {
	Apply(plan fsplan.Plan) ([]string, error)
}

// Prober checks host reachability.
type Prober interface {
	Check(ctx context.Context, host string) probe.Result
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run) error
}

// =============================================================================
// Deployer
// =============================================================================

// Deployer runs the deployment sequence.
type Deployer struct {
	cfg      Config
	docker   docker.Client
	preparer Preparer
	prober   Prober
	recorder Recorder // optional
	console  *console.Console
	logger   *slog.Logger
}

// New creates a Deployer. recorder may be nil; history is best-effort.
func New(cfg Config, dockerClient docker.Client, preparer Preparer, prober Prober, recorder Recorder, out *console.Console, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Deployer{
		cfg:      cfg,
		docker:   dockerClient,
		preparer: preparer,
		prober:   prober,
		recorder: recorder,
		console:  out,
		logger:   logger,
	}
}

// Result is the outcome of one deployment run.
type Result struct {
	RunID      string
	Settings   envfile.Settings
	States     []stack.ServiceState
	Evaluation stack.Evaluation
}

// Run executes the whole sequence. A nil error means the post-start check
// detected a running stack and the summary was printed; any other outcome
// returns an error after printing a diagnostic.
func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	startedAt := time.Now()

	err := d.run(ctx, result)

	d.record(ctx, result, startedAt, err)
	return result, err
}

func (d *Deployer) run(ctx context.Context, result *Result) error {
	// 1. Precondition checks. Nothing is mutated before these pass.
	if os.Geteuid() == 0 {
		d.console.Warning("running as root; files created by the stack will be root-owned")
	}

	if _, err := os.Stat(d.cfg.SettingsPath); err != nil {
		d.console.Error("settings file %s not found", d.cfg.SettingsPath)
		return fmt.Errorf("settings file %s: %w", d.cfg.SettingsPath, err)
	}
	if _, err := os.Stat(d.cfg.ComposePath); err != nil {
		d.console.Error("stack definition %s not found", d.cfg.ComposePath)
		return fmt.Errorf("stack definition %s: %w", d.cfg.ComposePath, err)
	}
	if err := d.docker.Ping(); err != nil {
		d.console.Error("cannot reach the Docker daemon; is it installed and running?")
		return err
	}

	// 2. Filesystem preparation.
	d.console.Status("preparing directories and permissions")
	plan := fsplan.Build(d.cfg.DataRoot, d.cfg.SecretsDir, d.cfg.ScriptsDir)
	warnings, err := d.preparer.Apply(plan)
	for _, w := range warnings {
		d.console.Warning("%s", w)
	}
	if err != nil {
		d.console.Error("filesystem preparation failed: %v", err)
		return err
	}

	// 3. Network preparation. Best effort: if the network is genuinely
	// unusable, container creation will fail later with a clearer error.
	networkName := stack.NetworkName(d.cfg.Project)
	_, err = d.docker.CreateNetwork(docker.NetworkSpec{
		Name:   networkName,
		Labels: map[string]string{stack.LabelStack: d.cfg.Project},
	})
	switch {
	case err == nil:
		d.console.Status("created network %s", networkName)
	case errors.Is(err, docker.ErrNetworkAlreadyExists):
		d.console.Warning("network %s already exists", networkName)
	default:
		d.console.Warning("could not create network %s: %v", networkName, err)
	}

	// 4. Settings load and validation.
	content, err := os.ReadFile(d.cfg.SettingsPath)
	if err != nil {
		d.console.Error("cannot read settings file %s: %v", d.cfg.SettingsPath, err)
		return err
	}
	settings, err := envfile.Parse(string(content))
	if err != nil {
		d.console.Error("cannot parse settings file %s: %v", d.cfg.SettingsPath, err)
		return err
	}
	if err := envfile.Validate(settings); err != nil {
		d.console.Error("%v", err)
		return err
	}
	result.Settings = settings
	host := settings.TraefikHost()
	d.logger.Info("settings loaded", "host", host, "email", settings.UserEmail())

	// 5. Reachability probe, skipped for local aliases. Advisory only:
	// DNS propagation delay is expected and not a deployment blocker.
	if !stack.IsLocalAlias(host) && d.prober != nil {
		probed := d.prober.Check(ctx, host)
		if !probed.Resolved {
			d.console.Warning("host %s is not resolvable yet (%s); continuing anyway", host, probed.Err)
		} else if !probed.Dialed {
			d.console.Status("host %s resolves to %s", host, strings.Join(probed.Addresses, ", "))
		}
	}

	// 6. Orchestration: down, refresh, up.
	spec, err := d.parseStack(settings)
	if err != nil {
		d.console.Error("invalid stack definition: %v", err)
		return err
	}

	d.stopPrevious()

	d.console.Status("pulling images")
	for _, img := range spec.Images() {
		d.logger.Info("pulling image", "image", img)
		if err := d.docker.PullImage(img, docker.PullOptions{}); err != nil {
			d.console.Error("failed to pull %s: %v", img, err)
			return err
		}
	}

	d.console.Status("starting services")
	if err := d.startStack(spec, settings, networkName, result.RunID); err != nil {
		d.console.Error("failed to start services: %v", err)
		return err
	}

	// 7. Post-start verification.
	d.console.Status("waiting for services to report running")
	states, err := d.waitForRunning(ctx)
	if err != nil {
		return err
	}
	result.States = states
	result.Evaluation = stack.Evaluate(states)

	// 8. Summary or failure report.
	if !result.Evaluation.Succeeded {
		d.printFailure(states)
		return fmt.Errorf("no service reached the running state")
	}
	d.printSummary(result)
	return nil
}

// parseStack loads and parses the stack definition, interpolating compose
// variables from the parsed settings.
func (d *Deployer) parseStack(settings envfile.Settings) (*compose.StackSpec, error) {
	content, err := os.ReadFile(d.cfg.ComposePath)
	if err != nil {
		return nil, err
	}
	return compose.ParseStackSpec(string(content), settings)
}

// stopPrevious tears down any containers from an earlier run. "Nothing to
// stop" is the expected case on first deployment.
func (d *Deployer) stopPrevious() {
	containers, err := d.docker.ListContainers(docker.ListOptions{
		All:     true,
		Filters: map[string]string{"label": fmt.Sprintf("%s=%s", stack.LabelStack, d.cfg.Project)},
	})
	if err != nil {
		d.console.Warning("could not list previous deployment: %v", err)
		return
	}
	if len(containers) == 0 {
		d.console.Warning("no previous deployment to stop")
		return
	}

	d.console.Status("stopping previous deployment (%d containers)", len(containers))
	timeout := 10 * time.Second
	for _, c := range containers {
		if c.Status == docker.ContainerStatusRunning {
			if err := d.docker.StopContainer(c.ID, &timeout); err != nil {
				d.logger.Warn("failed to stop container", "container", c.Name, "error", err)
			}
		}
		if err := d.docker.RemoveContainer(c.ID, docker.RemoveOptions{Force: true}); err != nil {
			d.logger.Warn("failed to remove container", "container", c.Name, "error", err)
		}
	}
}

// startStack creates volumes and containers and starts them in depends_on
// order. Containers join the driver network under their service name so
// services address each other by name.
func (d *Deployer) startStack(spec *compose.StackSpec, settings envfile.Settings, networkName, runID string) error {
	for _, vol := range spec.Volumes {
		if vol.External {
			continue
		}
		name := stack.VolumeName(d.cfg.Project, vol.Name)
		if _, err := d.docker.CreateVolume(docker.VolumeSpec{
			Name:   name,
			Labels: map[string]string{stack.LabelStack: d.cfg.Project},
		}); err != nil {
			return fmt.Errorf("failed to create volume %s: %w", vol.Name, err)
		}
		d.logger.Debug("ensured volume", "volume", name)
	}

	namedVolumes := make(map[string]bool, len(spec.Volumes))
	for _, vol := range spec.Volumes {
		namedVolumes[vol.Name] = true
	}

	host := settings.TraefikHost()
	for _, svc := range compose.SortByDependencies(spec.Services) {
		containerSpec := d.buildContainerSpec(svc, networkName, runID, namedVolumes)

		// Route the public host to the web application through the proxy.
		if svc.Name == stack.ServiceDataverse {
			routing := traefik.GenerateLabels(traefik.LabelParams{
				Project:     d.cfg.Project,
				ServiceName: svc.Name,
				Hostname:    host,
				Port:        8080,
				EnableTLS:   !stack.IsLocalAlias(host),
			})
			for k, v := range routing {
				containerSpec.Labels[k] = v
			}
		}

		containerID, err := d.docker.CreateContainer(containerSpec)
		if err != nil {
			return fmt.Errorf("failed to create container for %s: %w", svc.Name, err)
		}
		if err := d.docker.StartContainer(containerID); err != nil {
			if !errors.Is(err, docker.ErrContainerAlreadyRunning) {
				return fmt.Errorf("failed to start %s: %w", svc.Name, err)
			}
		}
		d.logger.Info("started service", "service", svc.Name, "container", containerSpec.Name)
	}

	return nil
}

// buildContainerSpec converts a compose service to a container spec.
func (d *Deployer) buildContainerSpec(svc compose.Service, networkName, runID string, namedVolumes map[string]bool) docker.ContainerSpec {
	labels := map[string]string{
		stack.LabelStack:   d.cfg.Project,
		stack.LabelService: svc.Name,
		stack.LabelRun:     runID,
	}
	for k, v := range svc.Labels {
		labels[k] = v
	}

	spec := docker.ContainerSpec{
		Name:       stack.ContainerName(d.cfg.Project, svc.Name),
		Image:      svc.Image,
		Command:    svc.Command,
		Entrypoint: svc.Entrypoint,
		Env:        svc.Environment,
		Labels:     labels,
		Networks:   []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {svc.Name},
		},
	}

	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, docker.PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	for _, v := range svc.Volumes {
		source := v.Source
		if v.Type == compose.VolumeMountTypeVolume && namedVolumes[source] {
			source = stack.VolumeName(d.cfg.Project, source)
		}
		if v.Type == compose.VolumeMountTypeBind && !filepath.IsAbs(source) {
			source = filepath.Join(filepath.Dir(d.cfg.ComposePath), source)
		}
		spec.Volumes = append(spec.Volumes, docker.VolumeMount{
			Source:   source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	if svc.Restart != "" {
		spec.RestartPolicy = docker.RestartPolicy{Name: string(svc.Restart)}
	}

	if svc.HealthCheck != nil {
		hc := &docker.HealthCheck{
			Test:    svc.HealthCheck.Test,
			Retries: svc.HealthCheck.Retries,
		}
		hc.Interval, _ = time.ParseDuration(svc.HealthCheck.Interval)
		hc.Timeout, _ = time.ParseDuration(svc.HealthCheck.Timeout)
		hc.StartPeriod, _ = time.ParseDuration(svc.HealthCheck.StartPeriod)
		spec.HealthCheck = hc
	}

	return spec
}

// waitForRunning polls structured container state until the stack settles
// or the timeout elapses, then returns the last observed states.
func (d *Deployer) waitForRunning(ctx context.Context) ([]stack.ServiceState, error) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(d.cfg.ReadyTimeout)
	var states []stack.ServiceState

	for {
		select {
		case <-ctx.Done():
			return states, ctx.Err()
		case <-ticker.C:
			var err error
			states, err = d.observeStates()
			if err != nil {
				d.console.Error("status query failed: %v", err)
				return states, err
			}
			if stack.Settled(states) || time.Now().After(deadline) {
				return states, nil
			}
			d.logger.Debug("services not settled yet", "running", stack.Evaluate(states).RunningCount, "total", len(states))
		}
	}
}

// observeStates queries per-service container state by label.
func (d *Deployer) observeStates() ([]stack.ServiceState, error) {
	containers, err := d.docker.ListContainers(docker.ListOptions{
		All:     true,
		Filters: map[string]string{"label": fmt.Sprintf("%s=%s", stack.LabelStack, d.cfg.Project)},
	})
	if err != nil {
		return nil, err
	}

	states := make([]stack.ServiceState, 0, len(containers))
	for _, c := range containers {
		states = append(states, stack.ServiceState{
			Service: c.Labels[stack.LabelService],
			State:   c.State,
			Health:  c.Health,
		})
	}
	return states, nil
}

// record persists the run outcome; failures here are warnings only.
func (d *Deployer) record(ctx context.Context, result *Result, startedAt time.Time, runErr error) {
	if d.recorder == nil {
		return
	}

	run := history.Run{
		ID:              result.RunID,
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
		Host:            result.Settings.TraefikHost(),
		Outcome:         history.OutcomeSuccess,
		ServicesTotal:   result.Evaluation.Total,
		ServicesRunning: result.Evaluation.RunningCount,
	}
	if runErr != nil {
		run.Outcome = history.OutcomeFailure
		run.Error = runErr.Error()
	}

	if err := d.recorder.RecordRun(ctx, run); err != nil {
		d.logger.Warn("failed to record run history", "error", err)
	}
}
