package deployer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrdr/dvup/internal/core/fsplan"
	"github.com/openrdr/dvup/internal/core/stack"
	"github.com/openrdr/dvup/internal/shell/console"
	"github.com/openrdr/dvup/internal/shell/docker"
	"github.com/openrdr/dvup/internal/shell/history"
	"github.com/openrdr/dvup/internal/shell/probe"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeDocker is an in-memory docker.Client. Containers started through it
// transition to serviceStates[service] (default "running").
type fakeDocker struct {
	pingErr       error
	pullErr       error
	networkExists bool

	serviceStates map[string]string // service name → state after start

	pulled     []string
	created    []docker.ContainerSpec
	started    []string
	volumes    []string
	networks   []string
	containers map[string]*docker.ContainerInfo
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{containers: make(map[string]*docker.ContainerInfo)}
}

func (f *fakeDocker) Ping() error { return f.pingErr }
func (f *fakeDocker) Close() error { return nil }

func (f *fakeDocker) CreateContainer(spec docker.ContainerSpec) (string, error) {
	id := fmt.Sprintf("c%d", len(f.created))
	f.created = append(f.created, spec)
	f.containers[id] = &docker.ContainerInfo{
		ID:     id,
		Name:   spec.Name,
		Image:  spec.Image,
		State:  "created",
		Status: docker.ContainerStatusCreated,
		Labels: spec.Labels,
	}
	return id, nil
}

func (f *fakeDocker) StartContainer(id string) error {
	info, ok := f.containers[id]
	if !ok {
		return docker.NewDockerError("StartContainer", "container", id, "container not found", docker.ErrContainerNotFound)
	}
	state := "running"
	if f.serviceStates != nil {
		if s, ok := f.serviceStates[info.Labels[stack.LabelService]]; ok {
			state = s
		}
	}
	info.State = state
	info.Status = docker.ContainerStatus(state)
	f.started = append(f.started, info.Name)
	return nil
}

func (f *fakeDocker) StopContainer(id string, _ *time.Duration) error {
	if info, ok := f.containers[id]; ok {
		info.State = "exited"
		info.Status = docker.ContainerStatusExited
	}
	return nil
}

func (f *fakeDocker) RemoveContainer(id string, _ docker.RemoveOptions) error {
	delete(f.containers, id)
	return nil
}

func (f *fakeDocker) InspectContainer(id string) (*docker.ContainerInfo, error) {
	info, ok := f.containers[id]
	if !ok {
		return nil, docker.NewDockerError("InspectContainer", "container", id, "container not found", docker.ErrContainerNotFound)
	}
	return info, nil
}

func (f *fakeDocker) ListContainers(_ docker.ListOptions) ([]docker.ContainerInfo, error) {
	var result []docker.ContainerInfo
	for _, info := range f.containers {
		result = append(result, *info)
	}
	return result, nil
}

func (f *fakeDocker) ContainerLogs(string, docker.LogOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *fakeDocker) CreateNetwork(spec docker.NetworkSpec) (string, error) {
	if f.networkExists {
		return "", docker.NewDockerError("CreateNetwork", "network", spec.Name, "network already exists", docker.ErrNetworkAlreadyExists)
	}
	f.networks = append(f.networks, spec.Name)
	return "net-" + spec.Name, nil
}

func (f *fakeDocker) CreateVolume(spec docker.VolumeSpec) (string, error) {
	f.volumes = append(f.volumes, spec.Name)
	return spec.Name, nil
}

func (f *fakeDocker) PullImage(image string, _ docker.PullOptions) error {
	if f.pullErr != nil {
		return f.pullErr
	}
	f.pulled = append(f.pulled, image)
	return nil
}

// countingPreparer records Apply calls without touching the disk.
type countingPreparer struct {
	calls int
}

func (p *countingPreparer) Apply(fsplan.Plan) ([]string, error) {
	p.calls++
	return nil, nil
}

// staticProber returns a canned result.
type staticProber struct {
	result probe.Result
}

func (p *staticProber) Check(_ context.Context, host string) probe.Result {
	r := p.result
	r.Host = host
	return r
}

// capturingRecorder keeps recorded runs in memory.
type capturingRecorder struct {
	runs []history.Run
}

func (r *capturingRecorder) RecordRun(_ context.Context, run history.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

// =============================================================================
// Fixtures
// =============================================================================

const testStack = `
services:
  traefik:
    image: traefik:v2.11
    ports:
      - "80:80"

  postgres:
    image: postgres:16
    volumes:
      - db-data:/var/lib/postgresql/data

  dataverse:
    image: gdcc/dataverse:6.2
    environment:
      DATAVERSE_SITEURL: https://${traefikhost}
    depends_on:
      - postgres

volumes:
  db-data:
`

type fixture struct {
	cfg      Config
	docker   *fakeDocker
	preparer *countingPreparer
	recorder *capturingRecorder
	out      *bytes.Buffer
}

func newFixture(t *testing.T, settings string) *fixture {
	t.Helper()
	dir := t.TempDir()

	settingsPath := filepath.Join(dir, "settings.env")
	require.NoError(t, os.WriteFile(settingsPath, []byte(settings), 0o644))

	composePath := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(testStack), 0o644))

	secretsDir := filepath.Join(dir, "secrets")
	passwordPath := filepath.Join(secretsDir, fsplan.AdminPasswordSecret.Path)
	require.NoError(t, os.MkdirAll(filepath.Dir(passwordPath), 0o755))
	require.NoError(t, os.WriteFile(passwordPath, []byte("admin1\n"), 0o600))

	return &fixture{
		cfg: Config{
			Project:      "dataverse",
			SettingsPath: settingsPath,
			ComposePath:  composePath,
			DataRoot:     dir,
			SecretsDir:   secretsDir,
			ReadyTimeout: 100 * time.Millisecond,
			PollInterval: time.Millisecond,
		},
		docker:   newFakeDocker(),
		preparer: &countingPreparer{},
		recorder: &capturingRecorder{},
		out:      &bytes.Buffer{},
	}
}

func (f *fixture) deployer() *Deployer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f.cfg, f.docker, f.preparer, &staticProber{probe.Result{Resolved: true, Dialed: true}}, f.recorder, console.NewWithColor(f.out, false), logger)
}

// =============================================================================
// Tests
// =============================================================================

func TestRun_Success(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")

	result, err := f.deployer().Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Evaluation.Succeeded)
	assert.True(t, result.Evaluation.AllRunning)
	assert.Equal(t, 3, result.Evaluation.Total)

	// All images pulled, the named volume and the network created.
	assert.Len(t, f.docker.pulled, 3)
	assert.Contains(t, f.docker.volumes, "dvup_dataverse_db-data")
	assert.Contains(t, f.docker.networks, "dvup_dataverse")

	// Dependency order: postgres before dataverse.
	order := make(map[string]int)
	for i, spec := range f.docker.created {
		order[spec.Labels[stack.LabelService]] = i
	}
	assert.Less(t, order["postgres"], order["dataverse"])

	out := f.out.String()
	assert.Contains(t, out, "http://localhost:8080")
	assert.Contains(t, out, "admin1")
	assert.Contains(t, out, "[ OK ]")
}

func TestRun_RemoteHostAccessURL(t *testing.T) {
	f := newFixture(t, "traefikhost=data.example.edu\nuseremail=admin@example.edu\n")

	_, err := f.deployer().Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "https://data.example.edu")
}

func TestRun_MissingSettingsFile_NoMutation(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=a@b.c\n")
	f.cfg.SettingsPath = filepath.Join(t.TempDir(), "absent.env")

	_, err := f.deployer().Run(context.Background())
	require.Error(t, err)

	// Nothing was prepared or asked of the platform.
	assert.Zero(t, f.preparer.calls)
	assert.Empty(t, f.docker.networks)
	assert.Empty(t, f.docker.created)
	assert.Contains(t, f.out.String(), "[ERROR]")
}

func TestRun_MissingHostKey_NoOrchestration(t *testing.T) {
	f := newFixture(t, "useremail=admin@example.edu\n")

	_, err := f.deployer().Run(context.Background())
	require.Error(t, err)

	assert.Empty(t, f.docker.pulled)
	assert.Empty(t, f.docker.created)
	assert.Contains(t, f.out.String(), "traefikhost")
}

func TestRun_ExistingNetworkIsWarning(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")
	f.docker.networkExists = true

	_, err := f.deployer().Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "[WARNING] network dvup_dataverse already exists")
}

func TestRun_PullFailureIsFatal(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")
	f.docker.pullErr = docker.NewDockerError("PullImage", "image", "traefik:v2.11", "image not found", docker.ErrImageNotFound)

	_, err := f.deployer().Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.docker.created)
}

func TestRun_NoRunningServiceFails(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")
	f.docker.serviceStates = map[string]string{
		"traefik":   "exited",
		"postgres":  "exited",
		"dataverse": "exited",
	}

	_, err := f.deployer().Run(context.Background())
	require.Error(t, err)

	out := f.out.String()
	assert.Contains(t, out, "[ERROR] deployment failed")
	assert.Contains(t, out, "docker ps -a --filter label=io.dvup.stack=dataverse")
}

func TestRun_PartiallyRunningSucceeds(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")
	f.docker.serviceStates = map[string]string{"dataverse": "exited"}

	result, err := f.deployer().Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Evaluation.Succeeded)
	assert.False(t, result.Evaluation.AllRunning)
	assert.Contains(t, f.out.String(), "2 of 3 services running")
}

func TestRun_WebServiceGetsRoutingLabels(t *testing.T) {
	f := newFixture(t, "traefikhost=data.example.edu\nuseremail=admin@example.edu\n")

	_, err := f.deployer().Run(context.Background())
	require.NoError(t, err)

	var dvSpec *docker.ContainerSpec
	for i := range f.docker.created {
		if f.docker.created[i].Labels[stack.LabelService] == "dataverse" {
			dvSpec = &f.docker.created[i]
		}
	}
	require.NotNil(t, dvSpec)

	assert.Equal(t, "true", dvSpec.Labels["traefik.enable"])
	assert.Equal(t, "Host(`data.example.edu`)", dvSpec.Labels["traefik.http.routers.dataverse-dataverse.rule"])
	// Remote hosts terminate TLS at the proxy.
	assert.Equal(t, "letsencrypt", dvSpec.Labels["traefik.http.routers.dataverse-dataverse-secure.tls.certresolver"])
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture(t, "traefikhost=localhost\nuseremail=admin@example.edu\n")

	result, err := f.deployer().Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.recorder.runs, 1)
	run := f.recorder.runs[0]
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, history.OutcomeSuccess, run.Outcome)
	assert.Equal(t, "localhost", run.Host)
	assert.Equal(t, 3, run.ServicesRunning)
}

func TestRun_RecordsFailure(t *testing.T) {
	f := newFixture(t, "useremail=admin@example.edu\n")

	_, err := f.deployer().Run(context.Background())
	require.Error(t, err)

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, history.OutcomeFailure, f.recorder.runs[0].Outcome)
	assert.NotEmpty(t, f.recorder.runs[0].Error)
}
