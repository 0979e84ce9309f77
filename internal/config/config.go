// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-textlink/modbus"
)

// Config defines the global configuration structure
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Port     PortConfig     `mapstructure:"port"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Slave    SlaveConfig    `mapstructure:"slave"`
	Link     LinkConfig     `mapstructure:"link"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// PortConfig selects and configures the byte stream
type PortConfig struct {
	Type   string       `mapstructure:"type"`   // "serial" or "tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "192.168.1.100:4001"; the slave listens on it
}

// SerialConfig defines serial line settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"` // Read timeout of raw port operations

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// ProtocolConfig defines framing and transaction settings
type ProtocolConfig struct {
	Encoding         string        `mapstructure:"encoding"`           // "ascii" or "rtu"
	Timeout          time.Duration `mapstructure:"timeout"`            // Per-attempt response timeout
	Retries          int           `mapstructure:"retries"`            // Resends after the first attempt
	InterCharTimeout time.Duration `mapstructure:"inter_char_timeout"` // Silence that ends a frame
}

// SlaveConfig defines the slave role
type SlaveConfig struct {
	Address     int               `mapstructure:"address"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// PersistenceConfig selects the optional mirror of the current text
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// LinkConfig defines the raw terminal utilities
type LinkConfig struct {
	Terminator string `mapstructure:"terminator"` // none, cr, lf, crlf or literal characters
}

const (
	MaxRetries          = 5
	MaxTimeout          = 10 * time.Second
	MaxInterCharTimeout = time.Second
)

var defaults = map[string]interface{}{
	"log.level":                   "info",
	"log.file":                    "",
	"port.type":                   "serial",
	"port.serial.device":          "/dev/ttyUSB0",
	"port.serial.baud_rate":       9600,
	"port.serial.data_bits":       8,
	"port.serial.parity":          "N",
	"port.serial.stop_bits":       1,
	"port.serial.timeout":         time.Second,
	"port.tcp.address":            "127.0.0.1:4001",
	"protocol.encoding":           "ascii",
	"protocol.timeout":            time.Second,
	"protocol.retries":            3,
	"protocol.inter_char_timeout": 100 * time.Millisecond,
	"slave.address":               1,
	"slave.persistence.type":      "memory",
	"link.terminator":             "crlf",
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"device":             "port.serial.device",
	"baud-rate":          "port.serial.baud_rate",
	"parity":             "port.serial.parity",
	"port-type":          "port.type",
	"tcp-address":        "port.tcp.address",
	"encoding":           "protocol.encoding",
	"timeout":            "protocol.timeout",
	"retries":            "protocol.retries",
	"inter-char-timeout": "protocol.inter_char_timeout",
	"address":            "slave.address",
	"persistence":        "slave.persistence.type",
	"persistence-path":   "slave.persistence.path",
	"terminator":         "link.terminator",
	"log-level":          "log.level",
	"log-file":           "log.file",
}

// RegisterFlags defines the command line flags understood by LoadConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Configuration file path.")
	fs.StringP("device", "p", defaults["port.serial.device"].(string), "Serial port device name.")
	fs.IntP("baud-rate", "s", defaults["port.serial.baud_rate"].(int), "Serial port speed.")
	fs.String("parity", defaults["port.serial.parity"].(string), "Serial parity (N, E, O).")
	fs.String("port-type", defaults["port.type"].(string), "Byte stream type (serial, tcp).")
	fs.String("tcp-address", defaults["port.tcp.address"].(string), "TCP address to dial (master) or listen on (slave).")
	fs.StringP("encoding", "e", defaults["protocol.encoding"].(string), "Frame encoding (ascii, rtu).")
	fs.DurationP("timeout", "W", defaults["protocol.timeout"].(time.Duration), "Response wait time per attempt.")
	fs.IntP("retries", "N", defaults["protocol.retries"].(int), "Number of resends after the first attempt.")
	fs.Duration("inter-char-timeout", defaults["protocol.inter_char_timeout"].(time.Duration), "Silence that ends a frame.")
	fs.IntP("address", "a", defaults["slave.address"].(int), "Slave address (1-247).")
	fs.String("persistence", defaults["slave.persistence.type"].(string), "Text store mirror (memory, file, mmap).")
	fs.String("persistence-path", "", "File mirroring the text store.")
	fs.StringP("terminator", "t", defaults["link.terminator"].(string), "Line terminator (none, cr, lf, crlf or literal).")
	fs.StringP("log-level", "v", defaults["log.level"].(string), "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log-file", "L", defaults["log.file"].(string), "Log file name ('-' for logging to STDOUT only).")
}

// LoadConfig loads configuration from defaults, the config file, the
// environment (TEXTLINK_*) and the flags in fs, in increasing priority.
// fs may be nil.
func LoadConfig(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix("TEXTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/textlink/")
		v.AddConfigPath("$HOME/.textlink")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Flags and defaults are enough when no config file is around.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Port.Serial)

	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	if _, err := c.Protocol.ParseEncoding(); err != nil {
		return err
	}
	if c.Protocol.Retries < 0 || c.Protocol.Retries > MaxRetries {
		return fmt.Errorf("protocol.retries %d out of range 0-%d", c.Protocol.Retries, MaxRetries)
	}
	if c.Protocol.Timeout <= 0 || c.Protocol.Timeout > MaxTimeout {
		return fmt.Errorf("protocol.timeout %v out of range (0, %v]", c.Protocol.Timeout, MaxTimeout)
	}
	if c.Protocol.InterCharTimeout < 0 || c.Protocol.InterCharTimeout > MaxInterCharTimeout {
		return fmt.Errorf("protocol.inter_char_timeout %v out of range [0, %v]", c.Protocol.InterCharTimeout, MaxInterCharTimeout)
	}
	if c.Slave.Address < modbus.MinSlaveAddress || c.Slave.Address > modbus.MaxSlaveAddress {
		return fmt.Errorf("slave.address %d out of range %d-%d", c.Slave.Address, modbus.MinSlaveAddress, modbus.MaxSlaveAddress)
	}

	switch c.Port.Type {
	case "serial":
		if c.Port.Serial.Device == "" {
			return errors.New("port.serial.device is required")
		}
		switch c.Port.Serial.Parity {
		case "N", "E", "O":
		default:
			return fmt.Errorf("port.serial.parity '%s' is not one of N, E, O", c.Port.Serial.Parity)
		}
	case "tcp":
		if c.Port.Tcp.Address == "" {
			return errors.New("port.tcp.address is required")
		}
	default:
		return fmt.Errorf("unknown port type '%s'", c.Port.Type)
	}

	switch c.Slave.Persistence.Type {
	case "", "memory":
	case "file", "mmap":
		if c.Slave.Persistence.Path == "" {
			return fmt.Errorf("slave.persistence.path is required for '%s'", c.Slave.Persistence.Type)
		}
	default:
		return fmt.Errorf("unknown persistence type '%s'", c.Slave.Persistence.Type)
	}

	if _, err := c.Link.TerminatorBytes(); err != nil {
		return err
	}
	return nil
}

// ParseEncoding returns the configured wire encoding.
func (p ProtocolConfig) ParseEncoding() (modbus.Encoding, error) {
	return modbus.ParseEncoding(p.Encoding)
}

// TerminatorBytes resolves the configured terminator.
func (l LinkConfig) TerminatorBytes() ([]byte, error) {
	switch strings.ToLower(l.Terminator) {
	case "none", "":
		return nil, nil
	case "cr":
		return []byte("\r"), nil
	case "lf":
		return []byte("\n"), nil
	case "crlf", "cr-lf":
		return []byte("\r\n"), nil
	}
	if len(l.Terminator) > 2 {
		return nil, fmt.Errorf("custom terminator '%s' must be 1 or 2 characters", l.Terminator)
	}
	return []byte(l.Terminator), nil
}
