package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// packageTable is the reserved top-level table carrying grid rates; it
// can never name a device.
const packageTable = "package"

var ErrInvalidConfig = errors.New("invalid config")

// PackageRates holds the grid operator's day/night rates in VAT-exclusive
// EUR/MWh. They adjust spot prices; the planner never sees them directly.
type PackageRates struct {
	Day   float64 `toml:"day"`
	Night float64 `toml:"night"`
}

// Duration parses TOML strings like "9h".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Device is one controlled device's scheduling constraints and switch
// commands, keyed in the config file by the device's name.
type Device struct {
	Threshold *float64  `toml:"threshold"`
	Ratio     *float64  `toml:"ratio"`
	RatioMax  *float64  `toml:"ratio_max"`
	Window    *Duration `toml:"window"`
	CmdOn     []string  `toml:"cmd_on"`
	CmdOff    []string  `toml:"cmd_off"`
}

type Config struct {
	Package PackageRates
	Devices map[string]Device
}

// MQTTConfig carries broker settings for the optional MQTT publisher.
type MQTTConfig struct {
	Host     string
	Username string
	Password string
}

// App is the flag-derived runtime configuration assembled by the CLI
// layer, separate from the TOML device file.
type App struct {
	DryRun      bool
	LogLevel    string
	DatabaseURL string
	Mqtt        *MQTTConfig
}

// Runtime holds environment-derived settings that rarely change between
// deployments.
type Runtime struct {
	PriceURL   string `env:"ELEKTER_PRICE_URL" envDefault:"https://dashboard.elering.ee/api/nps/price"`
	ListenAddr string `env:"ELEKTER_LISTEN_ADDR" envDefault:":8000"`
	Timezone   string `env:"ELEKTER_TZ" envDefault:"Europe/Tallinn"`
}

func RuntimeFromEnv() (*Runtime, error) {
	rt := &Runtime{}
	if err := env.Parse(rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Load reads and validates the TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the document in two passes: once for the reserved
// [package] table, once for every other table as a device.
func Parse(data []byte) (*Config, error) {
	var head struct {
		Package PackageRates `toml:"package"`
	}
	if err := toml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	devices := map[string]Device{}
	if err := toml.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if dev, ok := devices[packageTable]; ok {
		if len(dev.CmdOn) > 0 || len(dev.CmdOff) > 0 || dev.Threshold != nil {
			return nil, fmt.Errorf("%w: %q is reserved and cannot name a device", ErrInvalidConfig, packageTable)
		}
		delete(devices, packageTable)
	}

	cfg := &Config{Package: head.Package, Devices: devices}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("%w: no devices configured", ErrInvalidConfig)
	}
	for _, name := range c.DeviceNames() {
		if err := c.Devices[name].validate(); err != nil {
			return fmt.Errorf("%w: device %q: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// DeviceNames returns the configured device names in stable order.
func (c *Config) DeviceNames() []string {
	names := make([]string, 0, len(c.Devices))
	for name := range c.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Device) validate() error {
	if d.Threshold == nil {
		return errors.New("threshold is required")
	}
	if err := ratioInRange("ratio", d.Ratio); err != nil {
		return err
	}
	if err := ratioInRange("ratio_max", d.RatioMax); err != nil {
		return err
	}
	if d.Ratio != nil && d.RatioMax != nil && *d.Ratio > *d.RatioMax {
		return errors.New("ratio_max must not be smaller than ratio")
	}
	if d.Window != nil {
		if d.Ratio == nil && d.RatioMax == nil {
			return errors.New("window requires ratio or ratio_max")
		}
		w := time.Duration(*d.Window)
		if w < time.Hour || w%time.Hour != 0 {
			return errors.New("window must be a whole number of hours")
		}
	}
	if len(d.CmdOn) == 0 || d.CmdOn[0] == "" {
		return errors.New("cmd_on must not be empty")
	}
	if len(d.CmdOff) == 0 || d.CmdOff[0] == "" {
		return errors.New("cmd_off must not be empty")
	}
	return nil
}

func ratioInRange(field string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1", field)
	}
	return nil
}
