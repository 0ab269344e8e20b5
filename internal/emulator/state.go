// Package emulator is a virtual ZeDMD board. It accepts the network link on
// /zedmd, keeps the board state, mirrors frames to websocket viewers on /ws,
// streams diagnostics on /diag and reports /health.
package emulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/dmdlink/internal/diagnostics"
	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/palette"
	"github.com/coreman2200/dmdlink/internal/transport"
	"github.com/coreman2200/dmdlink/internal/transport/wire"
	"github.com/coreman2200/dmdlink/internal/zedmd"
)

var errBadPacket = errors.New("emulator: bad packet")

// Settings survive SaveSettings.
type Settings struct {
	Brightness int          `yaml:"brightness"`
	RGBOrder   int          `yaml:"rgb_order"`
	WiFi       WiFiSettings `yaml:"wifi"`
}

type WiFiSettings struct {
	SSID     string `yaml:"ssid,omitempty"`
	Password string `yaml:"password,omitempty"`
	Port     int    `yaml:"port,omitempty"`
}

// Board is the emulated device state.
type Board struct {
	Panel     dmd.Dimensions
	FrameSize dmd.Dimensions

	Settings // live values; persisted on SaveSettings

	Debug        bool
	PreDownscale bool
	PreUpscale   bool
	Upscaling    bool
	Streaming    bool

	Palette       palette.Buffer
	PaletteColors int
	Rotations     []byte

	FrameID uint64
	Clears  int
	Devices int
}

type State struct {
	mu    sync.RWMutex
	board Board

	// SettingsPath is where SaveSettings writes; empty keeps settings in memory.
	SettingsPath string

	// OnFrame receives every decoded frame.
	OnFrame func(dmd.Frame)

	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	log         zerolog.Logger
}

func NewState(model zedmd.Model) *State {
	panel := model.FixedSize()
	return &State{
		board: Board{
			Panel:     panel,
			FrameSize: panel,
			Settings:  Settings{Brightness: 6},
		},
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		log:         log.With().Str("component", "emulator").Str("panel", panel.String()).Logger(),
	}
}

// Board returns a copy of the current state.
func (s *State) Board() Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.board
	b.Rotations = append([]byte(nil), b.Rotations...)
	return b
}

// Handler routes the emulator endpoints.
func (s *State) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(transport.NetworkPath, s.HandleDevice)
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

// LoadSettings restores settings written by an earlier SaveSettings.
func (s *State) LoadSettings() error {
	if s.SettingsPath == "" {
		return nil
	}
	b, err := os.ReadFile(s.SettingsPath)
	if err != nil {
		return err
	}
	var st Settings
	if err := yaml.Unmarshal(b, &st); err != nil {
		return err
	}
	s.mu.Lock()
	s.board.Settings = st
	s.mu.Unlock()
	return nil
}

func (s *State) saveSettings() error {
	if s.SettingsPath == "" {
		return nil
	}
	b, err := yaml.Marshal(s.board.Settings)
	if err != nil {
		return err
	}
	return os.WriteFile(s.SettingsPath, b, 0644)
}

// Apply executes one packet against the board.
func (s *State) Apply(p wire.Packet) error {
	s.mu.Lock()
	f, err := s.apply(p)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Stringer("cmd", p.Cmd).Msg("packet rejected")
		s.pushDiag(diagnostics.Diagnostic{
			Severity: diagnostics.Warn, Code: "PACKET.REJECTED", Summary: "Packet rejected",
			Detail:   err.Error(),
			Evidence: map[string]any{"cmd": p.Cmd.String(), "len": len(p.Payload)},
		})
		return err
	}
	if f != nil {
		if s.OnFrame != nil {
			s.OnFrame(f.Clone())
		}
		s.broadcastFrame(*f)
	}
	return nil
}

func (s *State) apply(p wire.Packet) (*dmd.Frame, error) {
	b := &s.board
	switch p.Cmd {
	case wire.CmdFrameSize:
		w, err := wire.Uint16At(p.Payload, 0)
		if err != nil {
			return nil, err
		}
		h, err := wire.Uint16At(p.Payload, 1)
		if err != nil {
			return nil, err
		}
		b.FrameSize = dmd.Dimensions{Width: w, Height: h}
	case wire.CmdGray2:
		return s.frame(p.Payload, 2)
	case wire.CmdGray4:
		return s.frame(p.Payload, 4)
	case wire.CmdRGB24:
		return s.frame(p.Payload, 24)
	case wire.CmdColGray6:
		n := b.FrameSize.Area()
		if len(p.Payload) != n+zedmd.RotationBytes {
			return nil, fmt.Errorf("%w: %d bytes for 6-bit %s", errBadPacket, len(p.Payload), b.FrameSize)
		}
		b.Rotations = append(b.Rotations[:0], p.Payload[n:]...)
		return s.frame(p.Payload[:n], 6)
	case wire.CmdClearScreen:
		b.Clears++
	case wire.CmdPalette:
		if len(p.Payload) != 1+palette.BufferLen {
			return nil, fmt.Errorf("%w: palette of %d bytes", errBadPacket, len(p.Payload))
		}
		n := int(p.Payload[0])
		if palette.Tier(n) != n {
			return nil, fmt.Errorf("%w: palette of %d colours", errBadPacket, n)
		}
		b.PaletteColors = n
		copy(b.Palette[:], p.Payload[1:])
	case wire.CmdEnableDebug, wire.CmdDisableDebug:
		b.Debug = p.Cmd == wire.CmdEnableDebug
	case wire.CmdEnablePreDownscale, wire.CmdDisablePreDownscale:
		b.PreDownscale = p.Cmd == wire.CmdEnablePreDownscale
	case wire.CmdEnablePreUpscale, wire.CmdDisablePreUpscale:
		b.PreUpscale = p.Cmd == wire.CmdEnablePreUpscale
	case wire.CmdEnableUpscaling, wire.CmdDisableUpscaling:
		b.Upscaling = p.Cmd == wire.CmdEnableUpscaling
	case wire.CmdEnforceStreaming:
		b.Streaming = true
	case wire.CmdBrightness:
		v, err := oneByte(p.Payload, zedmd.MaxBrightness)
		if err != nil {
			return nil, err
		}
		b.Brightness = v
	case wire.CmdRGBOrder:
		v, err := oneByte(p.Payload, zedmd.MaxRGBOrder)
		if err != nil {
			return nil, err
		}
		b.RGBOrder = v
	case wire.CmdWiFiSSID:
		b.WiFi.SSID = string(p.Payload)
	case wire.CmdWiFiPassword:
		b.WiFi.Password = string(p.Payload)
	case wire.CmdWiFiPort:
		port, err := wire.Uint16At(p.Payload, 0)
		if err != nil {
			return nil, err
		}
		b.WiFi.Port = port
	case wire.CmdSaveSettings:
		if err := s.saveSettings(); err != nil {
			return nil, err
		}
		s.log.Info().Str("path", s.SettingsPath).Msg("settings saved")
	default:
		return nil, fmt.Errorf("%w: unknown command %s", errBadPacket, p.Cmd)
	}
	return nil, nil
}

func (s *State) frame(data []byte, bitLength int) (*dmd.Frame, error) {
	size := s.board.FrameSize
	if want := size.Area() * dmd.BytesPerPixel(bitLength); len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes for %d-bit %s, want %d", errBadPacket, len(data), bitLength, size, want)
	}
	s.board.FrameID++
	return &dmd.Frame{Data: append([]byte(nil), data...), BitLength: bitLength, Dimensions: size}, nil
}

func oneByte(p []byte, hi int) (int, error) {
	if len(p) != 1 || int(p[0]) > hi {
		return 0, fmt.Errorf("%w: want one byte <= %d, got %v", errBadPacket, hi, p)
	}
	return int(p[0]), nil
}

// HandleDevice serves one device link. Every binary message is one packet.
func (s *State) HandleDevice(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.board.Devices++
	s.mu.Unlock()
	s.log.Info().Str("remote", r.RemoteAddr).Msg("device link opened")
	s.pushDiag(diagnostics.Diagnostic{Severity: diagnostics.Info, Code: "LINK.OPEN", Summary: "Device link opened", Detail: r.RemoteAddr})

	defer func() {
		s.mu.Lock()
		s.board.Devices--
		s.mu.Unlock()
		conn.Close()
		s.log.Info().Str("remote", r.RemoteAddr).Msg("device link closed")
	}()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		p, err := wire.Parse(data)
		if err != nil {
			s.pushDiag(diagnostics.Diagnostic{Severity: diagnostics.Err, Code: "PACKET.MALFORMED", Summary: "Malformed packet", Detail: err.Error()})
			continue
		}
		_ = s.Apply(p)
	}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, s.diagClients)
}

// register keeps a viewer until it disconnects. Viewers never send anything useful.
func (s *State) register(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	set[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.board
	resp := map[string]any{
		"frame_id":       b.FrameID,
		"uptime_s":       time.Since(s.startTime).Seconds(),
		"panel":          b.Panel.String(),
		"frame_size":     b.FrameSize.String(),
		"brightness":     b.Brightness,
		"rgb_order":      b.RGBOrder,
		"palette_colors": b.PaletteColors,
		"devices":        b.Devices,
		"viewers":        len(s.clients),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type frameMsg struct {
	T         int64  `json:"t"`
	FrameID   uint64 `json:"frame_id"`
	BitLength int    `json:"bit_length"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Data      []byte `json:"data"`
	Palette   []byte `json:"palette,omitempty"`
}

func (s *State) broadcastFrame(f dmd.Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.clients) == 0 {
		return
	}
	msg := frameMsg{
		T:         time.Now().UnixNano(),
		FrameID:   s.board.FrameID,
		BitLength: f.BitLength,
		Width:     f.Dimensions.Width,
		Height:    f.Dimensions.Height,
		Data:      f.Data,
	}
	if f.BitLength != 24 && s.board.PaletteColors > 0 {
		msg.Palette = s.board.Palette[:s.board.PaletteColors*3]
	}
	b, _ := json.Marshal(msg)
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diagnostics.Diagnostic) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, _ := json.Marshal(d)
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
