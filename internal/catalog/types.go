package catalog

import (
	"time"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/solver"
)

// Profile is a named load with the zero it is normally sighted in at.
type Profile struct {
	Name       string          `json:"name"`
	Load       ballistics.Load `json:"load"`
	ZeroRange  float64         `json:"zero_range"`
	YIntercept float64         `json:"y_intercept"`
}

// Request returns a standard-conditions, windless, level solve for p.
func (p Profile) Request() solver.Request {
	return solver.Request{
		Label:      p.Name,
		Load:       p.Load,
		ZeroRange:  p.ZeroRange,
		YIntercept: p.YIntercept,
	}
}

// Dataset is a complete catalog from one source.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Profiles  []Profile
}

// Lookup returns the profile with the given name.
func (d *Dataset) Lookup(name string) (Profile, bool) {
	for _, p := range d.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Names returns profile names in catalog order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Profiles))
	for i, p := range d.Profiles {
		names[i] = p.Name
	}
	return names
}
