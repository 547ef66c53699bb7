// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to settings missing from the configuration file.
const (
	DefaultBaudrate = 115200
	DefaultTimeout  = 10 * time.Second
)

// Config represents the loader configuration file.
type Config struct {
	// Port is the serial device connected to the board console.
	Port string `yaml:"port"`
	// Baudrate must match the firmware console.
	Baudrate int `yaml:"baudrate"`
	// Timeout bounds each serial read.
	Timeout time.Duration `yaml:"timeout"`
	// Image is the firmware file, ELF or flat binary.
	Image string `yaml:"image"`
	// Monitor attaches the local terminal to the console after an update.
	Monitor bool `yaml:"monitor"`
}

// LoadConfig parses the configuration file at path, unknown settings are
// rejected.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return ParseConfig(buf)
}

// ParseConfig parses a YAML configuration and applies defaults.
func ParseConfig(buf []byte) (*Config, error) {
	conf := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	if err := dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not parse configuration, %w", err)
	}

	conf.defaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) defaults() {
	if c.Baudrate == 0 {
		c.Baudrate = DefaultBaudrate
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks settings ranges, the port and image may be set later.
func (c *Config) Validate() error {
	if c.Baudrate < 0 {
		return fmt.Errorf("invalid baudrate %d", c.Baudrate)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %v", c.Timeout)
	}

	return nil
}
