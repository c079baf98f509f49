//go:build !alsa || headless

package main

import "errors"

func init() {
	compiledFeatures = append(compiledFeatures, "audio:alsa-unavailable")
}

// ALSASink is only available in builds tagged alsa.
type ALSASink struct{}

func NewALSASink(device string, config SynthConfig) (*ALSASink, error) {
	return nil, errors.New("alsa backend not compiled in (build with -tags alsa)")
}

func (s *ALSASink) WritePeriod(p []byte) (int, error) {
	return 0, errors.New("alsa backend not compiled in")
}

func (s *ALSASink) Close() error {
	return nil
}
