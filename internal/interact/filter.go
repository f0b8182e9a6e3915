package interact

import (
	"errors"
	"fmt"
	"strings"
)

// FilterMode selects which image filter runs and where.
type FilterMode int

const (
	FilterNone FilterMode = iota
	FilterCPUGray
	FilterCPUEdge
	FilterCPUPixelate
	FilterGPUGray
	FilterGPUEdge
	FilterGPUPixelate
)

// ErrUnknownFilter is returned by ParseFilter for unrecognized names.
var ErrUnknownFilter = errors.New("unknown filter")

var filterNames = map[FilterMode]string{
	FilterNone:        "none",
	FilterCPUGray:     "gray",
	FilterCPUEdge:     "edge",
	FilterCPUPixelate: "pixelate",
	FilterGPUGray:     "gray",
	FilterGPUEdge:     "edge",
	FilterGPUPixelate: "pixelate",
}

// Name returns the backend-independent filter name used in benchmark rows.
func (m FilterMode) Name() string {
	if n, ok := filterNames[m]; ok {
		return n
	}
	return "unknown"
}

// OnGPU reports whether the filter runs in a fragment shader.
func (m FilterMode) OnGPU() bool {
	return m == FilterGPUGray || m == FilterGPUEdge || m == FilterGPUPixelate
}

// OnCPU reports whether the filter runs on the captured frame.
func (m FilterMode) OnCPU() bool {
	return m == FilterCPUGray || m == FilterCPUEdge || m == FilterCPUPixelate
}

// Backend returns "gpu" for shader filters and "cpu" otherwise.
func (m FilterMode) Backend() string {
	if m.OnGPU() {
		return "gpu"
	}
	return "cpu"
}

func (m FilterMode) String() string {
	if m == FilterNone {
		return "none"
	}
	return m.Backend() + " " + m.Name()
}

// ParseFilter resolves a filter name and backend ("cpu" or "gpu").
func ParseFilter(name, backend string) (FilterMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	backend = strings.ToLower(strings.TrimSpace(backend))

	var gpu bool
	switch backend {
	case "", "cpu":
	case "gpu":
		gpu = true
	default:
		return FilterNone, fmt.Errorf("%w: backend %q", ErrUnknownFilter, backend)
	}

	switch name {
	case "", "none":
		return FilterNone, nil
	case "gray", "grayscale":
		if gpu {
			return FilterGPUGray, nil
		}
		return FilterCPUGray, nil
	case "edge", "edges":
		if gpu {
			return FilterGPUEdge, nil
		}
		return FilterCPUEdge, nil
	case "pixelate":
		if gpu {
			return FilterGPUPixelate, nil
		}
		return FilterCPUPixelate, nil
	}
	return FilterNone, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}
