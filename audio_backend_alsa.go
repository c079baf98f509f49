//go:build alsa && !headless

// audio_backend_alsa.go - ALSA audio output implementation

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate, unsigned int channels, snd_pcm_uframes_t period) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, SND_PCM_FORMAT_S16_LE);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, channels);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_period_size_near(handle, params, &period, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static long writePCM(snd_pcm_t* handle, const void* buffer, snd_pcm_uframes_t frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

func init() {
	compiledFeatures = append(compiledFeatures, "audio:alsa")
}

// ALSASink pushes S16_LE interleaved frames straight to a PCM device.
// snd_pcm_writei reports frames accepted, which become the byte count.
type ALSASink struct {
	handle     *C.snd_pcm_t
	frameBytes int
	mutex      sync.Mutex
}

func NewALSASink(device string, config SynthConfig) (*ALSASink, error) {
	if device == "" {
		device = "default"
	}
	cdev := C.CString(device)
	defer C.free(unsafe.Pointer(cdev))

	var err C.int
	handle := C.openPCM(cdev, &err)
	if err < 0 {
		return nil, fmt.Errorf("failed to open PCM device %s: %s", device, C.GoString(C.snd_strerror(err)))
	}

	if err = C.setupPCM(handle, C.uint(config.SampleRate), C.uint(config.Channels),
		C.snd_pcm_uframes_t(config.SamplesPerPeriod())); err < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("failed to setup PCM: %s", C.GoString(C.snd_strerror(err)))
	}

	return &ALSASink{
		handle:     handle,
		frameBytes: config.Channels * OUTPUT_SAMPLE_BYTES,
	}, nil
}

func (s *ALSASink) WritePeriod(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.handle == nil {
		return 0, errors.New("alsa sink closed")
	}
	frames := len(p) / s.frameBytes
	if frames == 0 {
		return 0, nil
	}
	n := C.writePCM(s.handle, unsafe.Pointer(&p[0]), C.snd_pcm_uframes_t(frames))
	if n < 0 {
		if n == -C.EPIPE {
			C.snd_pcm_prepare(s.handle)
			n = C.writePCM(s.handle, unsafe.Pointer(&p[0]), C.snd_pcm_uframes_t(frames))
		}
		if n < 0 {
			return 0, fmt.Errorf("write failed: %s", C.GoString(C.snd_strerror(C.int(n))))
		}
	}
	return int(n) * s.frameBytes, nil
}

func (s *ALSASink) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.handle != nil {
		C.closePCM(s.handle)
		s.handle = nil
	}
	return nil
}
