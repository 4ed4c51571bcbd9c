// Package cpu pins the process to a set of CPU cores so pre and post
// processing run on the fast cores of big.LITTLE Rockchip SoCs.
package cpu

import (
	"errors"
	"fmt"

	"github.com/swdee/go-rknnlite"

	"github.com/swdee/go-posemon/config"
)

// ErrAffinity is returned when an affinity can not be applied
var ErrAffinity = errors.New("error setting cpu affinity")

var coreTypes = map[string]rknnlite.CoreType{
	config.FastCores: rknnlite.FastCores,
	config.SlowCores: rknnlite.SlowCores,
	config.AllCores:  rknnlite.AllCores,
}

// Pin restricts the process to the cores selected by a
func Pin(a config.Affinity) error {

	if a.Platform != "" {
		ct, ok := coreTypes[a.CoreType]

		if !ok {
			return fmt.Errorf("%w: unknown core type %q", ErrAffinity, a.CoreType)
		}

		if err := rknnlite.SetCPUAffinityByPlatform(a.Platform, ct); err != nil {
			return fmt.Errorf("%w: %w", ErrAffinity, err)
		}

		return nil
	}

	if len(a.Cores) == 0 {
		return fmt.Errorf("%w: no cores given", ErrAffinity)
	}

	if err := rknnlite.SetCPUAffinity(rknnlite.CPUCoreMask(a.Cores)); err != nil {
		return fmt.Errorf("%w: %w", ErrAffinity, err)
	}

	return nil
}

// Current returns the mask of cores the process may run on
func Current() (uintptr, error) {
	return rknnlite.GetCPUAffinity()
}
