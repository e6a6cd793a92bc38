//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for Player
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohaplay

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lanikai/alohaplay/internal/render"
)

const (
	DefaultSlotSize = 100 << 10
	DefaultSlots    = 3
)

type Config struct {
	// Canvas dimensions, in pixels. Every delivered frame has this size.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Pool geometry. Zero values select the defaults.
	SlotSize int `yaml:"slot_size"`
	Slots    int `yaml:"slots"`

	// Delivery rate in frames per second. Zero delivers frames as fast as
	// they are decoded.
	FrameRate float64 `yaml:"frame_rate"`

	// Keep frames that straddle a slot boundary instead of dropping them,
	// buffering at most MaxCarry bytes of a partial frame.
	Carry    bool `yaml:"carry"`
	MaxCarry int  `yaml:"max_carry"`

	// "origin" draws frames unscaled at (0,0), "fit" stretches them over the
	// whole canvas.
	Scale string `yaml:"scale"`

	// Number of decoded payloads to remember. Zero disables the cache.
	CacheSize int `yaml:"cache_size"`

	// Payload decoder. Defaults to the registered image formats.
	Decode func(b []byte) (image.Image, error) `yaml:"-"`

	// Called on the extractor goroutine for every decoded frame. The image
	// is reused and only valid until Deliver returns.
	Deliver func(*image.RGBA) `yaml:"-"`
}

// LoadConfig reads a YAML config file. Defaults are not applied.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.SlotSize == 0 {
		c.SlotSize = DefaultSlotSize
	}
	if c.Slots == 0 {
		c.Slots = DefaultSlots
	}
	if c.Scale == "" {
		c.Scale = render.Origin.String()
	}
}

// Validate applies defaults and checks c for consistency.
func (c *Config) Validate() error {
	c.setDefaults()

	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Wrapf(ErrInvalidConfig, "canvas size %dx%d", c.Width, c.Height)
	case c.SlotSize < 0 || c.Slots < 0:
		return errors.Wrapf(ErrInvalidConfig, "pool geometry %d x %d", c.Slots, c.SlotSize)
	case c.FrameRate < 0:
		return errors.Wrapf(ErrInvalidConfig, "frame rate %v", c.FrameRate)
	case c.MaxCarry < 0:
		return errors.Wrapf(ErrInvalidConfig, "max carry %d", c.MaxCarry)
	case c.CacheSize < 0:
		return errors.Wrapf(ErrInvalidConfig, "cache size %d", c.CacheSize)
	}
	if _, err := render.ParseScale(c.Scale); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}
