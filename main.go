// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-textlink/internal/config"
	"github.com/ffutop/modbus-textlink/transport"
	"github.com/ffutop/modbus-textlink/transport/serial"
	"github.com/ffutop/modbus-textlink/transport/tcp"
)

const usage = `Usage: modbus-textlink [flags] <command> [args]

Commands:
  ports                                  List serial ports
  master write <address> <text>          Store text in a slave
  master read <address-list>             Read text from slaves (e.g. 1,3,5-7)
  slave                                  Run a slave until interrupted
  term send <text>                       Send text followed by the terminator
  term recv [size]                       Receive size bytes, or up to the terminator
  term send-hex <hex>                    Send raw bytes
  term recv-hex <size>                   Receive raw bytes
  term transaction <text> <size> [wait]  Send text and read a fixed-size reply
  term ping                              Measure a PING round trip
  term autobaud                          Detect the peer baud rate
  loopback <text>                        Run master and slave in-process

Flags:
`

// errUsage marks command line mistakes.
var errUsage = errors.New("invalid command line")

func main() {
	fs := pflag.NewFlagSet("modbus-textlink", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	configFile, _ := fs.GetString("config")
	cfg, err := config.LoadConfig(configFile, fs)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n", err)
			fs.Usage()
			os.Exit(2)
		}
		slog.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	switch args[0] {
	case "ports":
		return runPorts()
	case "master":
		return runMaster(ctx, cfg, args[1:])
	case "slave":
		return runSlave(ctx, cfg)
	case "term":
		return runTerm(cfg, args[1:])
	case "loopback":
		return runLoopback(ctx, cfg, args[1:])
	default:
		return fmt.Errorf("%w: unknown command '%s'", errUsage, args[0])
	}
}

// openPort opens the byte stream for a role. The slave listens when the
// stream is TCP; every other role dials.
func openPort(cfg *config.Config, listen bool) (transport.Port, error) {
	var port transport.Port
	switch cfg.Port.Type {
	case "tcp":
		if listen {
			lp, err := tcp.Listen(cfg.Port.Tcp.Address)
			if err != nil {
				return nil, err
			}
			port = lp
		} else {
			port = tcp.NewPort(cfg.Port.Tcp.Address)
		}
	default:
		sp := serial.NewPort(cfg.Port.Serial)
		if !listen {
			sp.IdleTimeout = serial.DefaultIdleTimeout
		}
		if err := sp.Connect(context.Background()); err != nil {
			return nil, err
		}
		port = sp
	}
	if err := port.SetTimeout(cfg.Port.Serial.Timeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
