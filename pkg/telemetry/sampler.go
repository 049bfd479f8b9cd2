package telemetry

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var samplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(r)
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r))
	},
}

// newSampler falls back to sampling everything for unknown names.
func newSampler(cfg *Config) sdktrace.Sampler {
	if fn, ok := samplers[cfg.Sampler]; ok {
		return fn(cfg.SamplerRatio)
	}
	return sdktrace.AlwaysSample()
}
