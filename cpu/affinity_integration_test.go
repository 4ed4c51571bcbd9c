//go:build integration

package cpu

import (
	"errors"
	"math/bits"
	"testing"

	"github.com/swdee/go-posemon/config"
)

func TestPinCores(t *testing.T) {

	before, err := Current()

	if err != nil {
		// hosts with more than 64 cpus need a larger mask
		t.Skipf("affinity unavailable: %v", err)
	}

	defer Pin(config.Affinity{Cores: cores(before)})

	// pin to the lowest allowed core
	lowest := bits.TrailingZeros64(uint64(before))

	if err := Pin(config.Affinity{Cores: []int{lowest}}); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}

	got, err := Current()

	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if got != 1<<lowest {
		t.Errorf("expected mask %b, got %b", uintptr(1)<<lowest, got)
	}
}

func TestPinErrors(t *testing.T) {

	tests := []config.Affinity{
		{Platform: "rk9999", CoreType: config.FastCores},
		{Platform: "rk3588", CoreType: "turbo"},
		{},
	}

	for _, a := range tests {
		if err := Pin(a); !errors.Is(err, ErrAffinity) {
			t.Errorf("Pin(%+v) expected ErrAffinity, got %v", a, err)
		}
	}
}

// cores lists the core numbers set in mask
func cores(mask uintptr) []int {

	var list []int

	for i := 0; i < bits.UintSize; i++ {
		if mask&(1<<i) != 0 {
			list = append(list, i)
		}
	}

	return list
}
