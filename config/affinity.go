package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Core types of an Affinity naming a platform
const (
	FastCores = "fast"
	SlowCores = "slow"
	AllCores  = "all"
)

// maxCore is the highest core number a cpu affinity mask can hold
const maxCore = 63

// Affinity is a parsed model.cpu_affinity setting.  Either Platform and
// CoreType are set, or Cores lists the core numbers to run on.
type Affinity struct {
	Platform string
	CoreType string
	Cores    []int
}

// ParseAffinity parses a cpu affinity setting of platform:type, such as
// rk3588:fast, or a comma separated list of core numbers such as 4,5,6,7.
// The platform name itself is checked when the affinity is applied.
func ParseAffinity(s string) (Affinity, error) {

	s = strings.ToLower(strings.TrimSpace(s))

	if platform, ct, ok := strings.Cut(s, ":"); ok {
		if platform == "" {
			return Affinity{}, fmt.Errorf("%w: cpu_affinity %q has no platform", ErrInvalidConfig, s)
		}

		switch ct {
		case FastCores, SlowCores, AllCores:
		default:
			return Affinity{}, fmt.Errorf("%w: cpu_affinity core type %q must be fast, slow or all",
				ErrInvalidConfig, ct)
		}

		return Affinity{Platform: platform, CoreType: ct}, nil
	}

	var a Affinity

	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))

		if err != nil || n < 0 || n > maxCore {
			return Affinity{}, fmt.Errorf("%w: cpu_affinity core %q", ErrInvalidConfig, f)
		}

		a.Cores = append(a.Cores, n)
	}

	return a, nil
}
