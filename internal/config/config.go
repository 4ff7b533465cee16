// Package config loads pcbsolid settings from a config file, the
// environment (PCBSOLID_ prefix) and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/chazu/pcbsolid/pkg/board"
	"github.com/chazu/pcbsolid/pkg/engine"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step"
	"github.com/chazu/pcbsolid/pkg/tessellate"
)

// EnvPrefix is prepended to every environment override, e.g.
// PCBSOLID_LOG_LEVEL or PCBSOLID_STEP_AUTHOR.
const EnvPrefix = "PCBSOLID"

// Config is the complete set of settings.
type Config struct {
	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`

	// Verify checks the splice pattern of every extruded piece.
	Verify bool `mapstructure:"verify"`

	Tessellation struct {
		SegmentsPerTurn int     `mapstructure:"segments_per_turn"`
		Eps             float64 `mapstructure:"eps"`
		CutStep         float64 `mapstructure:"cut_step"`
	} `mapstructure:"tessellation"`

	Layers struct {
		Copper     float64 `mapstructure:"copper"`
		Dielectric float64 `mapstructure:"dielectric"`
		Mask       float64 `mapstructure:"mask"`
		Silk       float64 `mapstructure:"silk"`
		Plating    float64 `mapstructure:"plating"`
	} `mapstructure:"layers"`

	// Colours maps a layer kind to a #rrggbb colour.
	Colours map[string]string `mapstructure:"colours"`

	Step struct {
		Author       string  `mapstructure:"author"`
		Organization string  `mapstructure:"organization"`
		Uncertainty  float64 `mapstructure:"uncertainty"`
	} `mapstructure:"step"`

	Preview struct {
		Width  int `mapstructure:"width"`
		Height int `mapstructure:"height"`
	} `mapstructure:"preview"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("verify", false)

	v.SetDefault("tessellation.segments_per_turn", tessellate.DefaultSegmentsPerTurn)
	v.SetDefault("tessellation.eps", tessellate.DefaultEps)
	v.SetDefault("tessellation.cut_step", tessellate.DefaultCutStep)

	d := engine.DefaultThicknesses
	v.SetDefault("layers.copper", d.Copper)
	v.SetDefault("layers.dielectric", d.Dielectric)
	v.SetDefault("layers.mask", d.Mask)
	v.SetDefault("layers.silk", d.Silk)
	v.SetDefault("layers.plating", d.Plating)

	v.SetDefault("colours", map[string]string{
		"copper":     "#b87333",
		"dielectric": "#596b38",
		"mask":       "#0d5a1a",
		"silk":       "#f2f2f2",
	})

	v.SetDefault("step.author", "")
	v.SetDefault("step.organization", "")
	v.SetDefault("step.uncertainty", step.DefaultUncertainty)

	v.SetDefault("preview.width", 1024)
	v.SetDefault("preview.height", 768)
}

// Load reads the config file at path, or pcbsolid.{yaml,toml,json} from
// the working directory when path is empty. A missing default file is not
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pcbsolid")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := c.LayerColours(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Thicknesses returns the layer defaults for the description engine.
func (c *Config) Thicknesses() engine.Defaults {
	return engine.Defaults{
		Copper:     c.Layers.Copper,
		Dielectric: c.Layers.Dielectric,
		Mask:       c.Layers.Mask,
		Silk:       c.Layers.Silk,
		Plating:    c.Layers.Plating,
	}
}

// TessellationOptions returns the tessellation settings.
func (c *Config) TessellationOptions() tessellate.Options {
	return tessellate.Options{
		SegmentsPerTurn: c.Tessellation.SegmentsPerTurn,
		Eps:             c.Tessellation.Eps,
		CutStep:         c.Tessellation.CutStep,
	}
}

// LayerColours parses the configured colours.
func (c *Config) LayerColours() (map[board.LayerKind]*model.Appearance, error) {
	out := make(map[board.LayerKind]*model.Appearance, len(c.Colours))
	for name, hex := range c.Colours {
		kind, err := board.ParseLayerKind(name)
		if err != nil {
			return nil, fmt.Errorf("config: colours: %w", err)
		}
		app, err := ParseColour(hex)
		if err != nil {
			return nil, fmt.Errorf("config: colours.%s: %w", name, err)
		}
		app.Name = name
		out[kind] = app
	}
	return out, nil
}

// ParseColour reads a #rrggbb colour.
func ParseColour(s string) (*model.Appearance, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return nil, fmt.Errorf("colour %q is not #rrggbb", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("colour %q is not #rrggbb", s)
	}
	return &model.Appearance{
		R: float64(n>>16&0xff) / 255,
		G: float64(n>>8&0xff) / 255,
		B: float64(n&0xff) / 255,
	}, nil
}
