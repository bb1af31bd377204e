package traefik

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLabels_HTTP(t *testing.T) {
	labels := GenerateLabels(LabelParams{
		Project:     "dataverse",
		ServiceName: "dataverse",
		Hostname:    "localhost",
		Port:        8080,
	})

	assert.Equal(t, "true", labels["traefik.enable"])
	assert.Equal(t, "Host(`localhost`)", labels["traefik.http.routers.dataverse-dataverse.rule"])
	assert.Equal(t, "web", labels["traefik.http.routers.dataverse-dataverse.entrypoints"])
	assert.Equal(t, "8080", labels["traefik.http.services.dataverse-dataverse.loadbalancer.server.port"])

	// No TLS routers for plain HTTP.
	for key := range labels {
		assert.NotContains(t, key, "-secure")
	}
}

func TestGenerateLabels_TLS(t *testing.T) {
	labels := GenerateLabels(LabelParams{
		Project:     "dataverse",
		ServiceName: "dataverse",
		Hostname:    "data.example.edu",
		Port:        8080,
		EnableTLS:   true,
	})

	assert.Equal(t, "Host(`data.example.edu`)", labels["traefik.http.routers.dataverse-dataverse-secure.rule"])
	assert.Equal(t, "websecure", labels["traefik.http.routers.dataverse-dataverse-secure.entrypoints"])
	assert.Equal(t, "true", labels["traefik.http.routers.dataverse-dataverse-secure.tls"])
	assert.Equal(t, "letsencrypt", labels["traefik.http.routers.dataverse-dataverse-secure.tls.certresolver"])
}
