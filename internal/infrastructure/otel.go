package infrastructure

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelProviders bundles the metric provider and its Prometheus
// scrape handler for the /metrics endpoint.
type OTelProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeOTel sets up OpenTelemetry metrics backed by a
// Prometheus exporter. Traces are not exported; the gate only needs
// counters and histograms.
func InitializeOTel() (*OTelProviders, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &OTelProviders{
		MeterProvider:  provider,
		Meter:          provider.Meter("appgate"),
		PrometheusHTTP: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}
