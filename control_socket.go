// control_socket.go - Unix socket control channel for a running synth

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

const (
	CONTROL_MAX_REQUEST_SIZE = 4096
	CONTROL_TIMEOUT          = 10 * time.Second
	CONTROL_SOCKET_NAME      = "synthesmaller.sock"
)

var errControlBusy = errors.New("another instance is already running")

func init() {
	compiledFeatures = append(compiledFeatures, "control:unix-socket")
}

type controlRequest struct {
	Cmd      string `json:"cmd"`
	Path     string `json:"path,omitempty"`
	Key      int    `json:"key,omitempty"`
	Velocity int    `json:"velocity,omitempty"`
	CC       int    `json:"cc,omitempty"`
	Value    int    `json:"value,omitempty"`
	Index    int    `json:"index,omitempty"`
}

type controlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ControlServer lets another process drive a running synth over a Unix
// socket, one JSON request per connection.
type ControlServer struct {
	listener net.Listener
	ctrl     *MIDIController
	scripts  func(path string) error
	logger   *slog.Logger
	done     chan struct{}
	sockPath string
}

func resolveControlSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, CONTROL_SOCKET_NAME)
	}
	return filepath.Join(os.TempDir(), CONTROL_SOCKET_NAME)
}

// NewControlServer binds sockPath. scripts starts a script in the running
// instance; nil refuses script requests.
func NewControlServer(sockPath string, ctrl *MIDIController, scripts func(string) error, logger *slog.Logger) (*ControlServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		// A socket nobody answers on is left over from a crash.
		conn, dialErr := net.DialTimeout("unix", sockPath, 2*time.Second)
		if dialErr == nil {
			conn.Close()
			return nil, errControlBusy
		}
		os.Remove(sockPath)
		if ln, err = net.Listen("unix", sockPath); err != nil {
			return nil, fmt.Errorf("control socket: %w", err)
		}
	}
	return &ControlServer{
		listener: ln,
		ctrl:     ctrl,
		scripts:  scripts,
		logger:   logger.With("component", "control"),
		done:     make(chan struct{}),
		sockPath: sockPath,
	}, nil
}

func (s *ControlServer) Start() {
	s.logger.Info("control socket listening", "path", s.sockPath)
	go s.acceptLoop()
}

// Stop closes the listener, waits for the accept loop and removes the socket.
func (s *ControlServer) Stop() {
	s.listener.Close()
	<-s.done
	os.Remove(s.sockPath)
}

func (s *ControlServer) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *ControlServer) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(CONTROL_TIMEOUT))

	buf := make([]byte, CONTROL_MAX_REQUEST_SIZE)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	var req controlRequest
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		s.writeResponse(conn, controlResponse{Status: "err", Message: "invalid json"})
		return
	}
	msg, err := s.dispatch(req)
	if err != nil {
		s.logger.Warn("control request failed", "cmd", req.Cmd, "err", err)
		s.writeResponse(conn, controlResponse{Status: "err", Message: err.Error()})
		return
	}
	s.writeResponse(conn, controlResponse{Status: "ok", Message: msg})
}

func (s *ControlServer) writeResponse(conn net.Conn, resp controlResponse) {
	data, _ := json.Marshal(resp)
	conn.Write(data)
}

func checkMIDIRange(name string, v int) (uint8, error) {
	if v < 0 || v > 127 {
		return 0, fmt.Errorf("%s %d out of range 0..127", name, v)
	}
	return uint8(v), nil
}

func (s *ControlServer) dispatch(req controlRequest) (string, error) {
	s.logger.Debug("control request", "cmd", req.Cmd)
	switch req.Cmd {
	case "note_on":
		key, err := checkMIDIRange("key", req.Key)
		if err != nil {
			return "", err
		}
		vel, err := checkMIDIRange("velocity", req.Velocity)
		if err != nil {
			return "", err
		}
		return "", s.ctrl.HandleMessage(midi.NoteOn(0, key, vel))
	case "note_off":
		key, err := checkMIDIRange("key", req.Key)
		if err != nil {
			return "", err
		}
		return "", s.ctrl.HandleMessage(midi.NoteOff(0, key))
	case "cc":
		cc, err := checkMIDIRange("controller", req.CC)
		if err != nil {
			return "", err
		}
		v, err := checkMIDIRange("value", req.Value)
		if err != nil {
			return "", err
		}
		return "", s.ctrl.HandleMessage(midi.ControlChange(0, cc, v))
	case "preset":
		if req.Index < 0 || req.Index >= PRESET_COUNT {
			return "", fmt.Errorf("%w: %d", ErrInvalidPresetIndex, req.Index)
		}
		return "", s.ctrl.ControlChange(MIDI_CC_PRESET_SELECT, uint8(req.Index*PRESET_CC_STEP))
	case "dump":
		return s.ctrl.ParameterDump(), nil
	case "script":
		if s.scripts == nil {
			return "", fmt.Errorf("scripts not accepted by this instance")
		}
		if err := validateScriptPath(req.Path); err != nil {
			return "", err
		}
		return "", s.scripts(req.Path)
	}
	return "", fmt.Errorf("unknown command %q", req.Cmd)
}

func validateScriptPath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("absolute path required")
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".lua" {
		return fmt.Errorf("unsupported extension: %s", ext)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}

// parseControlCommand turns command-line words into a request:
//
//	note_on KEY [VELOCITY] | note_off KEY | cc CC VALUE | preset N | dump | script FILE
func parseControlCommand(args []string) (controlRequest, error) {
	if len(args) == 0 {
		return controlRequest{}, fmt.Errorf("empty command")
	}
	ints := func(want int) ([]int, error) {
		if len(args)-1 < want {
			return nil, fmt.Errorf("%s needs %d argument(s)", args[0], want)
		}
		out := make([]int, len(args)-1)
		for i, a := range args[1:] {
			v, err := strconv.ParseInt(a, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%s: bad number %q", args[0], a)
			}
			out[i] = int(v)
		}
		return out, nil
	}

	req := controlRequest{Cmd: args[0]}
	switch args[0] {
	case "note_on":
		v, err := ints(1)
		if err != nil {
			return req, err
		}
		req.Key, req.Velocity = v[0], KEYBOARD_VELOCITY
		if len(v) > 1 {
			req.Velocity = v[1]
		}
	case "note_off":
		v, err := ints(1)
		if err != nil {
			return req, err
		}
		req.Key = v[0]
	case "cc":
		v, err := ints(2)
		if err != nil {
			return req, err
		}
		req.CC, req.Value = v[0], v[1]
	case "preset":
		v, err := ints(1)
		if err != nil {
			return req, err
		}
		req.Index = v[0]
	case "dump":
	case "script":
		if len(args) < 2 {
			return req, fmt.Errorf("script needs a file")
		}
		abs, err := filepath.Abs(args[1])
		if err != nil {
			return req, err
		}
		req.Path = abs
	default:
		return req, fmt.Errorf("unknown command %q", args[0])
	}
	return req, nil
}

// SendControl delivers req to the instance listening on sockPath and returns
// its message.
func SendControl(sockPath string, req controlRequest) (string, error) {
	conn, err := net.DialTimeout("unix", sockPath, CONTROL_TIMEOUT)
	if err != nil {
		return "", fmt.Errorf("cannot connect to running instance: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(CONTROL_TIMEOUT))

	data, _ := json.Marshal(req)
	if _, err := conn.Write(data); err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}

	buf := make([]byte, CONTROL_MAX_REQUEST_SIZE)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read response failed: %w", err)
	}
	var resp controlResponse
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	if resp.Status != "ok" {
		return "", fmt.Errorf("remote error: %s", resp.Message)
	}
	return resp.Message, nil
}
