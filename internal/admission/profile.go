package admission

import (
	"fmt"
	"slices"
	"time"
)

// DefaultProcessingTime is used when a profile is built without an explicit default.
const DefaultProcessingTime = 3 * time.Second

// Profile maps a work class (a model name) to the time a request of that class
// is expected to occupy the backend. It is read-only after construction.
type Profile struct {
	classes  map[string]time.Duration
	fallback time.Duration
}

// NewProfile builds a profile. A zero fallback selects DefaultProcessingTime.
func NewProfile(fallback time.Duration, classes map[string]time.Duration) (*Profile, error) {
	if fallback < 0 {
		return nil, fmt.Errorf("profile: default processing time must not be negative, got %s", fallback)
	}
	if fallback == 0 {
		fallback = DefaultProcessingTime
	}
	p := &Profile{
		classes:  make(map[string]time.Duration, len(classes)),
		fallback: fallback,
	}
	for class, d := range classes {
		if d < 0 {
			return nil, fmt.Errorf("profile: processing time for %q must not be negative, got %s", class, d)
		}
		p.classes[class] = d
	}
	return p, nil
}

// Estimate returns the expected processing time for class, or the default.
func (p *Profile) Estimate(class string) time.Duration {
	if d, ok := p.classes[class]; ok {
		return d
	}
	return p.fallback
}

func (p *Profile) Default() time.Duration {
	return p.fallback
}

// Classes returns the configured work classes in sorted order.
func (p *Profile) Classes() []string {
	out := make([]string, 0, len(p.classes))
	for class := range p.classes {
		out = append(out, class)
	}
	slices.Sort(out)
	return out
}
