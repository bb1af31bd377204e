package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

const minimalStack = `
services:
  traefik:
    image: traefik:v2.11
`

const repositoryStack = `
services:
  traefik:
    image: traefik:v2.11
    ports:
      - "80:80"
      - "443:443"

  postgres:
    image: postgres:16
    environment:
      POSTGRES_PASSWORD: ${db_password}
    volumes:
      - db-data:/var/lib/postgresql/data

  solr:
    image: solr:9.4
    volumes:
      - solr-data:/var/solr

  minio:
    image: minio/minio:latest
    command: ["server", "/data", "--console-address", ":9001"]
    volumes:
      - minio-data:/data

  dataverse:
    image: gdcc/dataverse:6.2
    environment:
      DATAVERSE_SITEURL: https://${traefikhost}
    depends_on:
      - postgres
      - solr
      - minio

volumes:
  db-data:
  solr-data:
  minio-data:
`

const cyclicStack = `
services:
  a:
    image: img:1
    depends_on:
      - b
  b:
    image: img:2
    depends_on:
      - a
`

// =============================================================================
// Parse Tests
// =============================================================================

func TestParseStackSpec_Minimal(t *testing.T) {
	spec, err := ParseStackSpec(minimalStack, nil)
	require.NoError(t, err)
	require.Len(t, spec.Services, 1)
	assert.Equal(t, "traefik", spec.Services[0].Name)
	assert.Equal(t, "traefik:v2.11", spec.Services[0].Image)
}

func TestParseStackSpec_FullStack(t *testing.T) {
	env := map[string]string{
		"traefikhost": "data.example.edu",
		"db_password": "hunter2",
	}

	spec, err := ParseStackSpec(repositoryStack, env)
	require.NoError(t, err)
	assert.Len(t, spec.Services, 5)
	assert.Len(t, spec.Volumes, 3)

	dv, ok := spec.Service("dataverse")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"postgres", "solr", "minio"}, dv.DependsOn)
	assert.Equal(t, "https://data.example.edu", dv.Environment["DATAVERSE_SITEURL"])

	pg, ok := spec.Service("postgres")
	require.True(t, ok)
	assert.Equal(t, "hunter2", pg.Environment["POSTGRES_PASSWORD"])
	require.Len(t, pg.Volumes, 1)
	assert.Equal(t, VolumeMountTypeVolume, pg.Volumes[0].Type)

	tr, ok := spec.Service("traefik")
	require.True(t, ok)
	require.Len(t, tr.Ports, 2)
	assert.EqualValues(t, 443, tr.Ports[1].Target)
	assert.EqualValues(t, 443, tr.Ports[1].Published)
}

func TestParseStackSpec_Images(t *testing.T) {
	spec, err := ParseStackSpec(repositoryStack, map[string]string{
		"traefikhost": "localhost",
		"db_password": "x",
	})
	require.NoError(t, err)

	images := spec.Images()
	assert.Len(t, images, 5)
	assert.Contains(t, images, "solr:9.4")
}

func TestParseStackSpec_EmptyInput(t *testing.T) {
	_, err := ParseStackSpec("  \n", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParseStackSpec_InvalidYAML(t *testing.T) {
	_, err := ParseStackSpec("services: [unclosed", nil)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParseStackSpec_NoImage(t *testing.T) {
	_, err := ParseStackSpec(`
services:
  app:
    build: .
`, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestParseStackSpec_CircularDependency(t *testing.T) {
	_, err := ParseStackSpec(cyclicStack, nil)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestParseStackSpec_ComposeSecretsRejected(t *testing.T) {
	_, err := ParseStackSpec(`
services:
  app:
    image: img:1
secrets:
  admin:
    file: ./secret.txt
`, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

// =============================================================================
// Ordering Tests
// =============================================================================

func TestSortByDependencies(t *testing.T) {
	services := []Service{
		{Name: "dataverse", DependsOn: []string{"postgres", "solr"}},
		{Name: "solr"},
		{Name: "postgres"},
		{Name: "traefik"},
	}

	sorted := SortByDependencies(services)
	require.Len(t, sorted, 4)

	position := make(map[string]int)
	for i, svc := range sorted {
		position[svc.Name] = i
	}
	assert.Greater(t, position["dataverse"], position["postgres"])
	assert.Greater(t, position["dataverse"], position["solr"])
}

func TestSortByDependencies_Empty(t *testing.T) {
	assert.Empty(t, SortByDependencies(nil))
}
