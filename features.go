package main

import (
	"fmt"
	"runtime"
	"slices"
)

const Version = "0.3.0"

// compiledFeatures lists the backends built into this binary. Each backend
// file registers itself from init().
var compiledFeatures []string

func printFeatures() {
	cfg := DefaultSynthConfig()
	fmt.Printf("Synthesmaller %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Device:  %d Hz, %d ch, %d samples/period\n", cfg.SampleRate, cfg.Channels, cfg.SamplesPerPeriod())
	fmt.Printf("  Presets: %d slots, %d-byte blobs\n", PRESET_COUNT, PRESET_BLOB_SIZE)
	fmt.Println()
	fmt.Println("Compiled features:")

	features := slices.Sorted(slices.Values(compiledFeatures))
	if len(features) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, f := range features {
		fmt.Printf("  %s\n", f)
	}
}
