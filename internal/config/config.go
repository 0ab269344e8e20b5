package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/dmdlink/internal/zedmd"
)

type Serial struct {
	Port string `yaml:"port,omitempty"` // e.g. /dev/ttyUSB0; empty probes
	Baud int    `yaml:"baud,omitempty"` // e.g. 921600
}

type Network struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

type WiFi struct {
	SSID     string `yaml:"ssid,omitempty"`
	Password string `yaml:"password,omitempty"`
	Port     int    `yaml:"port,omitempty"`
}

type Emulator struct {
	Addr         string `yaml:"addr"`
	Model        string `yaml:"model"`
	SettingsPath string `yaml:"settings_path,omitempty"`
}

type Config struct {
	Transport string `yaml:"transport"` // "serial" | "network"
	Model     string `yaml:"model"`     // "zedmd" | "zedmd-hd"

	Brightness int `yaml:"brightness"` // 0..15, -1 keeps the board value
	RGBOrder   int `yaml:"rgb_order"`  // 0..5, -1 keeps the board value

	Debug          bool `yaml:"debug"`
	ScaleRGB24     bool `yaml:"scale_rgb24"`
	AllowHDScaling bool `yaml:"allow_hd_scaling"`
	DelayMs        int  `yaml:"delay_ms"`

	LogLevel string `yaml:"log_level"`

	Serial   Serial   `yaml:"serial,omitempty"`
	Network  Network  `yaml:"network,omitempty"`
	WiFi     WiFi     `yaml:"wifi,omitempty"`
	Emulator Emulator `yaml:"emulator"`
}

func Default() Config {
	return Config{
		Transport:  "serial",
		Model:      string(zedmd.ModelZeDMD),
		Brightness: -1,
		RGBOrder:   -1,
		DelayMs:    33,
		LogLevel:   "info",
		Serial:     Serial{Baud: 921600},
		Network:    Network{Port: 3333},
		Emulator:   Emulator{Addr: ":3333", Model: string(zedmd.ModelZeDMD)},
	}
}

// Load reads path over Default, so missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	switch c.Transport {
	case "serial":
	case "network":
		if c.Network.Host == "" {
			return fmt.Errorf("network transport needs network.host")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	for _, m := range []string{c.Model, c.Emulator.Model} {
		if m != string(zedmd.ModelZeDMD) && m != string(zedmd.ModelZeDMDHD) {
			return fmt.Errorf("unknown model %q", m)
		}
	}
	if c.Brightness < -1 || c.Brightness > zedmd.MaxBrightness {
		return fmt.Errorf("brightness %d out of range", c.Brightness)
	}
	if c.RGBOrder < -1 || c.RGBOrder > zedmd.MaxRGBOrder {
		return fmt.Errorf("rgb_order %d out of range", c.RGBOrder)
	}
	return nil
}

// Device maps the file onto a device configuration.
func (c *Config) Device() zedmd.Config {
	d := zedmd.DefaultConfig
	d.Model = zedmd.Model(c.Model)
	d.Brightness = c.Brightness
	d.RGBOrder = c.RGBOrder
	d.Debug = c.Debug
	d.ScaleRGB24 = c.ScaleRGB24
	d.AllowHDScaling = c.AllowHDScaling
	d.Delay = time.Duration(c.DelayMs) * time.Millisecond
	d.WiFi = zedmd.WiFi{SSID: c.WiFi.SSID, Password: c.WiFi.Password, Port: c.WiFi.Port}
	if c.Transport == "network" {
		d.Host, d.NetworkPort = c.Network.Host, c.Network.Port
	} else {
		d.Port = c.Serial.Port
		d.Speed = physic.Frequency(c.Serial.Baud) * physic.Hertz
	}
	return d
}
