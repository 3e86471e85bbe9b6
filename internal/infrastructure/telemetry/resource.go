package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AttrComponent tells the API process apart from the validation worker
// when both report under the same service name.
const AttrComponent = attribute.Key("ifc.component")

// ServiceInfo identifies the reporting process on every exported signal.
type ServiceInfo struct {
	Name        string
	Version     string
	Component   string // "server" or "worker"
	Environment string
}

// newResource describes this process to the collector
func newResource(info ServiceInfo) (*resource.Resource, error) {
	version := info.Version
	if version == "" {
		version = "dev"
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(info.Name),
		semconv.ServiceVersion(version),
	}
	if info.Component != "" {
		attrs = append(attrs, AttrComponent.String(info.Component))
	}
	if info.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(info.Environment))
	}

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}
