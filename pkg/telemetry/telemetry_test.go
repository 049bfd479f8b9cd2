package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg := FromLookup(lookupFrom(nil))

	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "unknown", cfg.ServiceVersion)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "always_on", cfg.Sampler)
	assert.Equal(t, 1.0, cfg.SamplerRatio)
	assert.Empty(t, cfg.Headers)
	assert.Empty(t, cfg.ResourceAttrs)
}

func TestFromLookup_Values(t *testing.T) {
	cfg := FromLookup(lookupFrom(map[string]string{
		"OTEL_ENABLED":                "TRUE",
		"OTEL_SERVICE_NAME":           "size-cli",
		"OTEL_EXPORTER_OTLP_PROTOCOL": "http",
		"OTEL_EXPORTER_OTLP_HEADERS":  "Authorization=Bearer a=b, x-team = size ,broken",
		"OTEL_EXPORTER_OTLP_INSECURE": "1",
		"OTEL_TRACES_SAMPLER":         "TraceIdRatio",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
		"OTEL_RESOURCE_ATTRIBUTES":    "deployment.environment=ci",
	}))

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "size-cli", cfg.ServiceName)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, map[string]string{"Authorization": "Bearer a=b", "x-team": "size"}, cfg.Headers)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "traceidratio", cfg.Sampler)
	assert.Equal(t, 0.25, cfg.SamplerRatio)
	assert.Equal(t, map[string]string{"deployment.environment": "ci"}, cfg.ResourceAttrs)
}

func TestParseRatio(t *testing.T) {
	tests := map[string]float64{
		"":     1,
		"abc":  1,
		"-0.5": 0,
		"2":    1,
		"0.1":  0.1,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseRatio(in), "input %q", in)
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		sampler string
		want    string
	}{
		{"always_on", sdktrace.AlwaysSample().Description()},
		{"always_off", sdktrace.NeverSample().Description()},
		{"traceidratio", sdktrace.TraceIDRatioBased(0.5).Description()},
		{"parentbased_always_on", sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{"nonsense", sdktrace.AlwaysSample().Description()},
	}
	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			s := newSampler(&Config{Sampler: tt.sampler, SamplerRatio: 0.5})
			assert.Equal(t, tt.want, s.Description())
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in        string
		force     bool
		endpoint  string
		plaintext bool
	}{
		{"http://collector:4317", false, "collector:4317", true},
		{"https://collector:4317", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
		{"collector:4317", false, "collector:4317", false},
		{"", true, "", true},
	}
	for _, tt := range tests {
		endpoint, plaintext := splitEndpoint(tt.in, tt.force)
		assert.Equal(t, tt.endpoint, endpoint, tt.in)
		assert.Equal(t, tt.plaintext, plaintext, tt.in)
	}
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), &Config{
		ServiceName:    "size-analyzer",
		ServiceVersion: "1.2.3",
		ResourceAttrs:  map[string]string{"team": "size"},
	})
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "size-analyzer", values["service.name"])
	assert.Equal(t, "1.2.3", values["service.version"])
	assert.Equal(t, "size", values["team"])
}
