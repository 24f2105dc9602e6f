// Package config loads the TOML-ish session configuration via viper:
// defaults set before load, a missing file tolerated, an invalid one
// fatal. Recognized keys cover the session-tunable fields plus the
// ambient logging/device-selection keys the outer façade needs.
package config

import (
	"github.com/spf13/viper"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
)

// Config is the decoded, not-yet-validated session configuration.
// Pointer fields distinguish "not set" (nil, auto) from "set to zero".
type Config struct {
	BufferSizeSamples      *int     `mapstructure:"bufferSizeSamples"`
	ForceRead              bool     `mapstructure:"forceRead"`
	FullScaleInputLevelDBV *float64 `mapstructure:"fullScaleInputLevelDBV"`
	FullScaleOutputLevelDBV *float64 `mapstructure:"fullScaleOutputLevelDBV"`

	LogLevel     string `mapstructure:"logLevel"`
	LogFile      string `mapstructure:"logFile"`
	DeviceVariant string `mapstructure:"deviceVariant"`
}

// Load reads path (TOML) into a Config, tolerating a missing file —
// every key then takes its default. Unknown keys are ignored (viper's
// default behavior). It does not validate; call Validate against a
// resolved deviceprofile.Profile once the device variant is known.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("bufferSizeSamples", nil)
	v.SetDefault("forceRead", false)
	v.SetDefault("fullScaleInputLevelDBV", nil)
	v.SetDefault("fullScaleOutputLevelDBV", nil)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")
	v.SetDefault("deviceVariant", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, qaerr.InvalidParameter("config.Load", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, qaerr.InvalidParameter("config.Load", err)
	}
	return cfg, nil
}

// Validate checks cfg against p before any device I/O: invalid
// combinations must fail session construction before any device I/O
// happens. It returns the resolved buffer size in frames (p's
// StartThresholdFrames if BufferSizeSamples is unset), or an
// InvalidParameter error if the buffer size or either dBV level is not
// accepted by p. The register codes looked up for the dBV levels are
// not returned.
func Validate(cfg Config, p deviceprofile.Profile) (bufferFrames int, err error) {
	bufferFrames = p.StartThresholdFrames
	if cfg.BufferSizeSamples != nil {
		if *cfg.BufferSizeSamples <= 0 || (*cfg.BufferSizeSamples)%p.WriteGranularity != 0 {
			return 0, qaerr.InvalidParameter("config.Validate", nil)
		}
		bufferFrames = *cfg.BufferSizeSamples
	}

	if cfg.FullScaleInputLevelDBV != nil {
		if _, err := p.InputLevelCode(*cfg.FullScaleInputLevelDBV); err != nil {
			return 0, err
		}
	}
	if cfg.FullScaleOutputLevelDBV != nil {
		if _, err := p.OutputLevelCode(*cfg.FullScaleOutputLevelDBV); err != nil {
			return 0, err
		}
	}

	return bufferFrames, nil
}

// Settings builds a deviceprofile.Settings from cfg and a resolved
// sample rate, applying the requested full-scale levels, or -20 dBV for
// any level left unset (the output level shutdown also resets to).
func Settings(cfg Config, p deviceprofile.Profile, sampleRate int) deviceprofile.Settings {
	in, out := -20.0, -20.0
	if cfg.FullScaleInputLevelDBV != nil {
		in = *cfg.FullScaleInputLevelDBV
	}
	if cfg.FullScaleOutputLevelDBV != nil {
		out = *cfg.FullScaleOutputLevelDBV
	}
	return deviceprofile.Settings{
		InputFullScaleDBV:  in,
		OutputFullScaleDBV: out,
		SampleRate:         sampleRate,
	}
}
