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

//go:build !tamago
// +build !tamago

// The piload tool pushes firmware images to a running device over its serial
// console, and optionally attaches the local terminal to the console.
package main

import (
	"bytes"
	"debug/elf"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"k8s.io/klog"

	"github.com/jackwickham/raspi-firmware/loader"
)

type Config struct {
	conf string

	port     string
	baudrate int
	timeout  time.Duration
	image    string
	monitor  bool

	flatten string
	out     string
}

var conf *Config

func init() {
	klog.InitFlags(nil)

	conf = &Config{}

	flag.StringVar(&conf.conf, "c", "", "configuration file")
	flag.StringVar(&conf.port, "p", "", "serial port")
	flag.IntVar(&conf.baudrate, "b", 0, "baud rate")
	flag.DurationVar(&conf.timeout, "t", 0, "serial read timeout")
	flag.StringVar(&conf.image, "i", "", "firmware image (ELF or flat binary)")
	flag.BoolVar(&conf.monitor, "m", false, "attach terminal to the console after update")
	flag.StringVar(&conf.flatten, "flatten", "", "ELF file to convert to a flat image")
	flag.StringVar(&conf.out, "out", "kernel.img", "flat image output file")
}

// settings returns the configuration file settings overridden by flags.
func settings() (c *loader.Config, err error) {
	if len(conf.conf) > 0 {
		if c, err = loader.LoadConfig(conf.conf); err != nil {
			return nil, fmt.Errorf("could not load configuration, %w", err)
		}
	} else {
		c, _ = loader.ParseConfig(nil)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			c.Port = conf.port
		case "b":
			c.Baudrate = conf.baudrate
		case "t":
			c.Timeout = conf.timeout
		case "i":
			c.Image = conf.image
		case "m":
			c.Monitor = conf.monitor
		}
	})

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return
}

// readImage returns the flat image in path, ELF files are converted.
func readImage(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(buf, []byte(elf.ELFMAG)) {
		return buf, nil
	}

	img, err := loader.Flatten(bytes.NewReader(buf))

	if err != nil {
		return nil, err
	}

	if img.Entry != img.Load {
		klog.Warningf("entry point %#x is not at load address %#x", img.Entry, img.Load)
	}

	klog.Infof("flattened %s, %d bytes at %#x", path, len(img.Data), img.Load)

	return img.Data, nil
}

func flatten(in string, out string) error {
	buf, err := readImage(in)

	if err != nil {
		return err
	}

	return os.WriteFile(out, buf, 0644)
}

func push(c *loader.Config) (err error) {
	image, err := readImage(c.Image)

	if err != nil {
		return fmt.Errorf("could not read image, %w", err)
	}

	port, err := openPort(c)

	if err != nil {
		return fmt.Errorf("could not open %s, %w", c.Port, err)
	}
	defer port.Close()

	klog.Infof("pushing %d bytes to %s", len(image), c.Port)

	bar := pb.Full.Start64(int64(len(image)))
	bar.Set(pb.Bytes, true)

	err = loader.Push(port, image, bar.NewProxyWriter(io.Discard))
	bar.Finish()

	if err != nil {
		return
	}

	klog.Infof("update complete")

	if c.Monitor {
		return monitor(port)
	}

	return
}

func main() {
	var err error

	defer func() {
		if flag.NFlag() == 0 {
			flag.PrintDefaults()
		}

		if err != nil {
			klog.Exitf("fatal error, %v", err)
		}

		klog.Flush()
	}()

	flag.Parse()

	switch {
	case len(conf.flatten) > 0:
		err = flatten(conf.flatten, conf.out)
	default:
		var c *loader.Config

		if c, err = settings(); err != nil {
			return
		}

		switch {
		case len(c.Port) == 0:
			if flag.NFlag() > 0 {
				err = errors.New("no serial port specified (flag: -p)")
			}
		case len(c.Image) > 0:
			err = push(c)
		case c.Monitor:
			err = attach(c)
		}
	}
}
