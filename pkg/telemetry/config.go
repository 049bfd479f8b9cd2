package telemetry

import (
	"os"
	"strconv"
	"strings"
)

// DefaultServiceName is reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "size-analyzer"

// Protocols understood by the exporter.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds the tracing settings read from the standard OTEL_* variables.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Protocol       string
	Headers        map[string]string
	Insecure       bool
	Sampler        string
	SamplerRatio   float64
	ResourceAttrs  map[string]string
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// FromEnv reads the configuration from the process environment.
func FromEnv() *Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup.
func FromLookup(lookup LookupFunc) *Config {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	return &Config{
		Enabled:        parseBool(get("OTEL_ENABLED", "")),
		ServiceName:    get("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion: get("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Protocol:       normalizeProtocol(get("OTEL_EXPORTER_OTLP_PROTOCOL", ProtocolGRPC)),
		Headers:        parsePairs(get("OTEL_EXPORTER_OTLP_HEADERS", "")),
		Insecure:       parseBool(get("OTEL_EXPORTER_OTLP_INSECURE", "")),
		Sampler:        strings.ToLower(get("OTEL_TRACES_SAMPLER", "always_on")),
		SamplerRatio:   parseRatio(get("OTEL_TRACES_SAMPLER_ARG", "")),
		ResourceAttrs:  parsePairs(get("OTEL_RESOURCE_ATTRIBUTES", "")),
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func normalizeProtocol(p string) string {
	switch strings.ToLower(p) {
	case "http", "http/protobuf", "http/json":
		return ProtocolHTTP
	default:
		return ProtocolGRPC
	}
}

// parsePairs splits "k1=v1,k2=v2". Values may contain '='.
func parsePairs(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// parseRatio clamps the sampler argument to [0, 1]; anything unparsable
// samples everything.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil:
		return 1
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
