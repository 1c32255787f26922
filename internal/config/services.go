package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// ServicesFile is the on-disk shape of a service registry.
type ServicesFile struct {
	Services []models.ServiceDescriptor `yaml:"services"`
}

// DefaultServices is the built-in registry. Frontend pages are resolved
// against baseURL; everything else is simulated and only labelled.
func DefaultServices(baseURL string) []models.ServiceDescriptor {
	base := strings.TrimRight(baseURL, "/")
	page := func(id, name, path string) models.ServiceDescriptor {
		return models.ServiceDescriptor{
			ID:       id,
			Name:     name,
			URL:      base + path,
			Category: models.CategoryFrontend,
			Mode:     models.ModeReal,
			Method:   "GET",
		}
	}
	api := func(id, name, path string) models.ServiceDescriptor {
		return models.ServiceDescriptor{
			ID:       id,
			Name:     name,
			URL:      "https://api.startup-os.com/" + path + "/health",
			Category: models.CategoryAPI,
			Mode:     models.ModeSimulated,
			Method:   "GET",
		}
	}
	infra := func(id, name, url string, metric models.MetricKind) models.ServiceDescriptor {
		return models.ServiceDescriptor{
			ID:       id,
			Name:     name,
			URL:      url,
			Category: models.CategoryInfrastructure,
			Mode:     models.ModeSimulated,
			Metric:   metric,
		}
	}

	return []models.ServiceDescriptor{
		page("website", "Website", "/index.html"),
		page("features", "Features Page", "/features.html"),
		page("pricing", "Pricing Page", "/pricing.html"),

		api("api-auth", "Authentication API", "auth"),
		api("api-decisions", "Decisions API", "decisions"),
		api("api-tasks", "Tasks API", "tasks"),
		api("api-announcements", "Announcements API", "announcements"),
		api("api-people", "People API", "people"),
		api("api-widgets", "Widgets API", "widgets"),

		infra("database", "Database", "postgres://db.startup-os.com:5432", models.MetricConnections),
		infra("cache", "Cache", "redis://cache.startup-os.com:6379", models.MetricMemory),
		infra("storage", "Object Storage", "s3://startup-os-assets", models.MetricStorage),
	}
}

// LoadServices builds the registry. With no path the built-in table is used;
// otherwise the YAML file replaces it. URLs starting with "/" are resolved
// against baseURL.
func LoadServices(path, baseURL string, logger *zap.Logger) (*models.Registry, error) {
	if path == "" {
		registry, err := models.NewRegistry(DefaultServices(baseURL)...)
		if err != nil {
			return nil, fmt.Errorf("built-in registry: %w", err)
		}
		logger.Info("loaded built-in service registry", zap.Int("services", registry.Len()))
		return registry, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("services file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}

	services, err := ParseServices(content, baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	registry, err := models.NewRegistry(services...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("loaded service registry from file",
		zap.String("path", path),
		zap.Int("services", registry.Len()),
	)
	return registry, nil
}

// ParseServices decodes a YAML registry document.
func ParseServices(content []byte, baseURL string) ([]models.ServiceDescriptor, error) {
	var file ServicesFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse services: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, errors.New("no services defined")
	}

	base := strings.TrimRight(baseURL, "/")
	for i := range file.Services {
		if strings.HasPrefix(file.Services[i].URL, "/") {
			file.Services[i].URL = base + file.Services[i].URL
		}
	}
	return file.Services, nil
}

// MarshalServices encodes descriptors as a YAML registry document.
func MarshalServices(services []models.ServiceDescriptor) ([]byte, error) {
	return yaml.Marshal(ServicesFile{Services: services})
}
