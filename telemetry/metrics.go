package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	unitDimensionless = "1"
	unitMilliseconds  = "ms"
)

// Attribute keys shared by the site's instruments.
//
//nolint:gochecknoglobals // OpenTelemetry attribute keys must be global for reuse
var (
	AttrMethodKey  = attribute.Key("atelier_method")
	AttrPackageKey = attribute.Key("atelier_package")
	AttrStatusKey  = attribute.Key("atelier_status")
	AttrErrorKey   = attribute.Key("atelier_error")
)

func meter(pkg string) metric.Meter {
	return otel.Meter(pkg, metric.WithInstrumentationAttributes(AttrPackageKey.String(pkg)))
}

// LatencyMeasure returns the histogram of call latency for pkg.
func LatencyMeasure(pkg string) metric.Float64Histogram {
	m, err := meter(pkg).Float64Histogram(
		pkg+"/latency",
		metric.WithDescription("Latency distribution of method calls"),
		metric.WithUnit(unitMilliseconds),
	)
	if err != nil {
		// Only invalid instrument names fail, which tests catch.
		panic(fmt.Sprintf("latency measure %q: %v", pkg, err))
	}
	return m
}

// DimensionlessMeasure creates a counter for dimensionless measurements.
func DimensionlessMeasure(pkg string, meterName string, description string) metric.Int64Counter {
	m, err := meter(pkg).Int64Counter(
		pkg+meterName,
		metric.WithDescription(description),
		metric.WithUnit(unitDimensionless),
	)
	if err != nil {
		panic(fmt.Sprintf("counter %q: %v", pkg+meterName, err))
	}
	return m
}
