package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
)

func init() {
	govalidator.SetFieldsRequiredByDefault(true)
}

var (
	DefaultLocation string = "./pdfcert.toml" // Default location of the config file
	Settings        Config = Default()        // Replaced by Read once a config file is loaded.
)

// Config is the root of the config
type Config struct {
	Output OutputConfig `toml:"output" valid:"optional"`
	Text   TextConfig   `toml:"text" valid:"optional"`
	Render RenderConfig `toml:"render" valid:"optional"`
	Seal   SealConfig   `toml:"seal" valid:"optional"`
}

// OutputConfig controls where certificates are written.
type OutputConfig struct {
	Parent      string `toml:"parent" valid:"optional"`
	Prefix      string `toml:"prefix" valid:"optional"`
	Duplicates  string `toml:"duplicates" valid:"in(overwrite|suffix),optional"`
	JPEGQuality int    `toml:"jpeg_quality" valid:"range(1|100),optional"`
}

// TextConfig controls how names are drawn.
type TextConfig struct {
	Font        string  `toml:"font" valid:"optional"` // TrueType/OpenType file; Go Bold when empty
	Color       string  `toml:"color" valid:"hexcolor,optional"`
	HeightRatio float64 `toml:"height_ratio" valid:"optional"`
	Format      string  `toml:"format" valid:"optional"`
}

// RenderConfig controls template rasterisation.
type RenderConfig struct {
	Pdftoppm      string `toml:"pdftoppm" valid:"optional"`
	PreviewWidth  int    `toml:"preview_width" valid:"range(16|8192),optional"`
	PreviewHeight int    `toml:"preview_height" valid:"range(16|8192),optional"`
}

// SealConfig selects the identity used to sign certificates. Either
// Certificate and Key or PKCS12 may be set.
type SealConfig struct {
	Certificate string `toml:"certificate" valid:"optional"`
	Key         string `toml:"key" valid:"optional"`
	PKCS12      string `toml:"pkcs12" valid:"optional"`
	Password    string `toml:"password" valid:"optional"`
	TSA         string `toml:"tsa" valid:"url,optional"`
	TSAUsername string `toml:"tsa_username" valid:"optional"`
	TSAPassword string `toml:"tsa_password" valid:"optional"`
}

// Enabled reports whether a signing identity is configured.
func (s SealConfig) Enabled() bool {
	return s.Certificate != "" || s.Key != "" || s.PKCS12 != ""
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output: OutputConfig{
			Parent:     ".",
			Prefix:     "Certificates",
			Duplicates: "overwrite",
		},
		Text: TextConfig{
			Color:       "#000000",
			HeightRatio: 1.5,
			Format:      "{{Name}}",
		},
		Render: RenderConfig{
			Pdftoppm:      "pdftoppm",
			PreviewWidth:  800,
			PreviewHeight: 800,
		},
	}
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	if err != nil {
		return err
	}

	if r := c.Text.HeightRatio; r != 0 && (r < 0.5 || r > 10) {
		return fmt.Errorf("text.height_ratio %v out of range 0.5-10", r)
	}
	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		return errors.New("output.prefix must not contain path separators")
	}
	s := c.Seal
	if s.PKCS12 != "" && (s.Certificate != "" || s.Key != "") {
		return errors.New("seal: set either pkcs12 or certificate and key, not both")
	}
	if (s.Certificate == "") != (s.Key == "") {
		return errors.New("seal: certificate and key must be set together")
	}
	if s.TSA != "" && !s.Enabled() {
		return errors.New("seal: tsa requires a signing identity")
	}
	return nil
}

// Parse decodes and validates TOML config data on top of the defaults.
func Parse(data string) (Config, error) {
	c := Default()
	if _, err := toml.Decode(data, &c); err != nil {
		return Config{}, fmt.Errorf("config is not valid TOML: %w", err)
	}
	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}
	return c, nil
}

// Read loads the config file into Settings.
func Read(configfile string) error {
	data, err := os.ReadFile(configfile)
	if err != nil {
		return fmt.Errorf("config file is missing: %w", err)
	}

	c, err := Parse(string(data))
	if err != nil {
		return err
	}

	Settings = c
	return nil
}

// ParseColor parses "#rgb" or "#rrggbb", with or without the leading "#".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
