//go:build !headless

// display_ebiten.go - Parameter panel window

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

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gitlab.com/gomidi/midi/v2"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

func init() {
	compiledFeatures = append(compiledFeatures, "display:ebiten")
}

const (
	DISPLAY_WIDTH      = 640
	DISPLAY_HEIGHT     = 400
	DISPLAY_PANEL_W    = 200
	DISPLAY_PANEL_H    = 150
	DISPLAY_MARGIN     = 10
	DISPLAY_STATUS_BAR = 44
	DISPLAY_SKETCH_LEN = 64
)

var (
	panelBackground = color.RGBA{24, 28, 40, 255}
	panelTitle      = color.RGBA{0, 220, 90, 255}
	panelText       = color.RGBA{190, 190, 190, 255}
	panelTrace      = color.RGBA{250, 180, 40, 255}
)

// noteKeys are the ebiten keys in NOTE_KEY_LAYOUT order.
var noteKeys = []ebiten.Key{
	ebiten.KeyA, ebiten.KeyW, ebiten.KeyS, ebiten.KeyE, ebiten.KeyD,
	ebiten.KeyF, ebiten.KeyT, ebiten.KeyG, ebiten.KeyY, ebiten.KeyH,
	ebiten.KeyU, ebiten.KeyJ, ebiten.KeyK,
}

// PanelDisplay shows the synth parameters in a window. Panels are rendered
// into cached images and redrawn only when their parameters change.
type PanelDisplay struct {
	synth  *Synth
	ctrl   *MIDIController
	logger *slog.Logger

	tracker panelTracker
	panels  [panelCount]*ebiten.Image
	snap    Snapshot

	ctx      context.Context
	done     chan struct{}
	runErr   error
	baseKey  int
	heldKeys map[ebiten.Key]uint8

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
}

func NewPanelDisplay(synth *Synth, ctrl *MIDIController, logger *slog.Logger) *PanelDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelDisplay{
		synth:         synth,
		ctrl:          ctrl,
		logger:        logger.With("component", "display"),
		done:          make(chan struct{}),
		baseKey:       KEYBOARD_BASE_KEY,
		heldKeys:      make(map[ebiten.Key]uint8),
		showStatusBar: true,
	}
}

// Run opens the window and blocks until ctx is done or the window is
// closed. Closing the window returns errQuit.
func (d *PanelDisplay) Run(ctx context.Context) error {
	d.ctx = ctx
	ebiten.SetWindowSize(DISPLAY_WIDTH, DISPLAY_HEIGHT)
	ebiten.SetWindowTitle("Synthesmaller")
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetTPS(1000 / DISPLAY_POLL_MS)

	go func() {
		defer close(d.done)
		if err := ebiten.RunGame(d); err != nil {
			d.runErr = fmt.Errorf("ebiten: %w", err)
		}
	}()

	select {
	case <-d.done:
		if d.runErr != nil {
			return d.runErr
		}
		if ctx.Err() != nil {
			return nil
		}
		return errQuit
	case <-ctx.Done():
		<-d.done
		return nil
	}
}

func (d *PanelDisplay) Update() error {
	if ebiten.IsWindowBeingClosed() || d.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		d.showStatusBar = !d.showStatusBar
	}
	d.handleKeyboardInput()

	d.snap = d.synth.Snapshot()
	for _, p := range d.tracker.changed(d.snap) {
		d.renderPanel(p)
	}
	return nil
}

func (d *PanelDisplay) handleKeyboardInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		d.copyDumpToClipboard()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		d.baseKey = shiftOctave(d.baseKey, -1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		d.baseKey = shiftOctave(d.baseKey, 1)
	}

	for i, key := range noteKeys {
		if inpututil.IsKeyJustPressed(key) {
			note, _ := noteForKey(rune(NOTE_KEY_LAYOUT[i]), d.baseKey)
			d.heldKeys[key] = note
			_ = d.ctrl.HandleMessage(midi.NoteOn(0, note, KEYBOARD_VELOCITY))
		}
		if inpututil.IsKeyJustReleased(key) {
			if note, ok := d.heldKeys[key]; ok {
				delete(d.heldKeys, key)
				_ = d.ctrl.HandleMessage(midi.NoteOff(0, note))
			}
		}
	}
}

func (d *PanelDisplay) copyDumpToClipboard() {
	d.clipboardOnce.Do(func() {
		d.clipboardOK = clipboard.Init() == nil
	})
	if !d.clipboardOK {
		d.logger.Warn("clipboard not available")
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(d.ctrl.ParameterDump()))
	d.logger.Info("parameter dump copied to clipboard")
}

func panelOrigin(p DisplayPanel) (int, int) {
	switch p {
	case PANEL_ENVELOPE:
		return DISPLAY_MARGIN, 2*DISPLAY_MARGIN + DISPLAY_PANEL_H
	case PANEL_SYNTH:
		return 2*DISPLAY_MARGIN + 2*DISPLAY_PANEL_W + DISPLAY_MARGIN, 2*DISPLAY_MARGIN + DISPLAY_PANEL_H
	}
	return DISPLAY_MARGIN + int(p)*(DISPLAY_PANEL_W+DISPLAY_MARGIN), DISPLAY_MARGIN
}

func panelSize(p DisplayPanel) (int, int) {
	if p == PANEL_ENVELOPE {
		return 2*DISPLAY_PANEL_W + DISPLAY_MARGIN, DISPLAY_PANEL_H
	}
	return DISPLAY_PANEL_W, DISPLAY_PANEL_H
}

func (d *PanelDisplay) renderPanel(p DisplayPanel) {
	if d.panels[p] == nil {
		w, h := panelSize(p)
		d.panels[p] = ebiten.NewImage(w, h)
	}
	img := d.panels[p]
	img.Fill(panelBackground)

	face := basicfont.Face7x13
	text.Draw(img, p.String(), face, 8, 16, panelTitle)
	for i, line := range panelLines(p, d.snap) {
		text.Draw(img, line, face, 8, 36+i*15, panelText)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	box := [4]float32{8, 84, float32(w - 16), float32(h - 92)}
	switch p {
	case PANEL_OSC1:
		drawWaveform(img, box, d.snap.Osc1.Waveform)
	case PANEL_OSC2:
		drawWaveform(img, box, d.snap.Osc2.Waveform)
	case PANEL_LFO:
		drawWaveform(img, box, d.snap.LFO.Waveform)
	case PANEL_ENVELOPE:
		drawEnvelope(img, box, d.snap.Envelope)
	}
	d.logger.Debug("panel rendered", "panel", p)
}

// drawWaveform traces one period inside box {x, y, w, h}.
func drawWaveform(img *ebiten.Image, box [4]float32, w Waveform) {
	pts := waveformSketch(w, DISPLAY_SKETCH_LEN)
	mid := box[1] + box[3]/2
	step := box[2] / float32(len(pts)-1)
	for i := 1; i < len(pts); i++ {
		x0 := box[0] + float32(i-1)*step
		x1 := box[0] + float32(i)*step
		vector.StrokeLine(img, x0, mid-pts[i-1]*box[3]/2, x1, mid-pts[i]*box[3]/2, 1, panelTrace, true)
	}
}

func drawEnvelope(img *ebiten.Image, box [4]float32, p EnvelopeParams) {
	pts := envelopeSketch(p)
	bottom := box[1] + box[3]
	for i := 1; i < len(pts); i++ {
		vector.StrokeLine(img,
			box[0]+pts[i-1][0]*box[2], bottom-pts[i-1][1]*box[3],
			box[0]+pts[i][0]*box[2], bottom-pts[i][1]*box[3],
			1, panelTrace, true)
	}
}

func (d *PanelDisplay) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	for p, img := range d.panels {
		if img == nil {
			continue
		}
		x, y := panelOrigin(DisplayPanel(p))
		opts := &ebiten.DrawImageOptions{}
		opts.GeoM.Translate(float64(x), float64(y))
		screen.DrawImage(img, opts)
	}
	if d.showStatusBar {
		d.drawStatusBar(screen)
	}
}

func (d *PanelDisplay) Layout(_, _ int) (int, int) {
	return DISPLAY_WIDTH, DISPLAY_HEIGHT
}

func (d *PanelDisplay) drawStatusBar(screen *ebiten.Image) {
	s := d.synth.Stats()
	y := DISPLAY_HEIGHT - DISPLAY_STATUS_BAR
	ebitenutil.DrawRect(screen, 0, float64(y), DISPLAY_WIDTH, DISPLAY_STATUS_BAR, color.RGBA{0, 0, 0, 180})

	face := basicfont.Face7x13
	status := fmt.Sprintf("LOAD %5.1f%%  PERIODS %d  UNDERRUNS %d  OCTAVE C%d",
		s.LoadPercent, s.Periods, s.Underruns, d.baseKey/12-1)
	underrunColor := panelText
	if s.Underruns > 0 {
		underrunColor = color.RGBA{230, 70, 70, 255}
	}
	text.Draw(screen, status, face, 6, y+16, underrunColor)

	legend := "A-K Notes  Z/X Octave  Ctrl+C Copy CC  F12 Status Bar"
	legendX := max(DISPLAY_WIDTH-text.BoundString(face, legend).Dx()-6, 6)
	text.Draw(screen, legend, face, legendX, y+36, color.RGBA{160, 160, 160, 255})
}
