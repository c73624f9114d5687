package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
)

var factories = map[string]func(ts float64) dynamo.Metric{
	"iae":              func(ts float64) dynamo.Metric { return NewIAE(ts) },
	"ise":              func(ts float64) dynamo.Metric { return NewISE(ts) },
	"control_effort":   func(float64) dynamo.Metric { return NewControlEffort() },
	"saturation_ratio": func(float64) dynamo.Metric { return NewSaturationRatio() },
	"overshoot":        func(float64) dynamo.Metric { return NewOvershoot() },
}

// New builds the metric called name for a loop sampled at ts.
func New(name string, ts float64) (dynamo.Metric, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", dynamo.ErrInvalidConfig, name)
	}
	return f(ts), nil
}

// Names lists the available metrics, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
