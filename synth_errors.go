package main

import "errors"

var (
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidAmplitude       = errors.New("invalid amplitude")
	ErrInvalidWaveform        = errors.New("invalid waveform")
	ErrInvalidEnvelopeParams  = errors.New("invalid envelope parameters")
	ErrBufferCapacityExceeded = errors.New("buffer capacity exceeded")
	ErrOutputUnderrun         = errors.New("output underrun")
	ErrInvalidPreset          = errors.New("invalid preset blob")
	ErrInvalidPresetIndex     = errors.New("invalid preset index")
)
