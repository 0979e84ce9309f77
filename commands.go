// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ffutop/modbus-textlink/internal/config"
	"github.com/ffutop/modbus-textlink/internal/master"
	"github.com/ffutop/modbus-textlink/internal/slave"
	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/transport"
	"github.com/ffutop/modbus-textlink/transport/link"
	"github.com/ffutop/modbus-textlink/transport/local"
	"github.com/ffutop/modbus-textlink/transport/serial"
)

func runPorts() error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func newClient(cfg *config.Config, port transport.Port) (*master.Client, error) {
	enc, err := cfg.Protocol.ParseEncoding()
	if err != nil {
		return nil, err
	}
	c := master.NewClient(port, enc)
	c.Timeout = cfg.Protocol.Timeout
	c.Retries = cfg.Protocol.Retries
	c.InterCharTimeout = cfg.Protocol.InterCharTimeout
	c.BaudRate = lineBaudRate(cfg)
	return c, nil
}

// lineBaudRate is the configured line speed, zero when the link does not
// run over a local serial port.
func lineBaudRate(cfg *config.Config) int {
	if cfg.Port.Type != "serial" {
		return 0
	}
	return cfg.Port.Serial.BaudRate
}

func runMaster(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: master needs an operation and an address", errUsage)
	}
	op := args[0]
	if op != "read" && op != "write" {
		return fmt.Errorf("%w: unknown master operation '%s'", errUsage, op)
	}
	if op == "write" && len(args) < 3 {
		return fmt.Errorf("%w: master write needs a text", errUsage)
	}
	addresses, err := config.ParseAddresses(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	port, err := openPort(cfg, false)
	if err != nil {
		return err
	}
	defer port.Close()

	client, err := newClient(cfg, port)
	if err != nil {
		return err
	}

	switch op {
	case "write":
		text := strings.Join(args[2:], " ")
		for _, address := range addresses {
			resp, err := client.WriteText(ctx, address, text)
			if err != nil {
				slog.Debug("Write failed", "address", address, "err", err)
				fmt.Printf("Slave %d: No response or timeout.\n", address)
				continue
			}
			if resp.IsException() {
				fmt.Printf("Slave %d: Exception response (code %d).\n", address, resp.ExceptionCode())
				continue
			}
			fmt.Printf("Slave %d: Response: %v\n", address, resp)
		}
	case "read":
		for _, address := range addresses {
			text, err := client.ReadText(ctx, address)
			if err != nil {
				slog.Debug("Read failed", "address", address, "err", err)
				fmt.Printf("Slave %d: No response or timeout.\n", address)
				continue
			}
			fmt.Printf("Slave %d: %s\n", address, text)
		}
	}
	return nil
}

func runSlave(ctx context.Context, cfg *config.Config) error {
	enc, err := cfg.Protocol.ParseEncoding()
	if err != nil {
		return err
	}

	textStore := slave.OpenStore(cfg.Slave.Persistence)
	defer textStore.Close()

	port, err := openPort(cfg, true)
	if err != nil {
		return err
	}

	d := slave.NewDispatcher(byte(cfg.Slave.Address), enc, textStore)
	server := slave.NewServer(port, d, cfg.Protocol.Timeout, cfg.Protocol.InterCharTimeout)
	server.BaudRate = lineBaudRate(cfg)
	if err := server.Start(ctx); err != nil {
		port.Close()
		return err
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
	if err := server.Stop(); err != nil {
		slog.Warn("Failed to close port", "err", err)
	}
	slog.Info("Goodbye.")
	return nil
}

func runTerm(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: term needs an operation", errUsage)
	}
	terminator, err := cfg.Link.TerminatorBytes()
	if err != nil {
		return err
	}

	op, args := args[0], args[1:]
	// Validate arguments before opening the port
	var size int
	parseSize := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: invalid size '%s'", errUsage, s)
		}
		return n, nil
	}
	switch op {
	case "send", "send-hex":
		if len(args) == 0 {
			return fmt.Errorf("%w: term %s needs data", errUsage, op)
		}
	case "recv":
		if len(args) > 0 {
			if size, err = parseSize(args[0]); err != nil {
				return err
			}
		}
	case "recv-hex":
		if len(args) == 0 {
			return fmt.Errorf("%w: term recv-hex needs a size", errUsage)
		}
		if size, err = parseSize(args[0]); err != nil {
			return err
		}
	case "transaction":
		if len(args) < 2 {
			return fmt.Errorf("%w: term transaction needs a text and a size", errUsage)
		}
		if size, err = parseSize(args[1]); err != nil {
			return err
		}
	case "ping", "autobaud":
	default:
		return fmt.Errorf("%w: unknown term operation '%s'", errUsage, op)
	}

	port, err := openPort(cfg, false)
	if err != nil {
		return err
	}
	defer port.Close()

	l := link.New(port, terminator, cfg.Port.Serial.Timeout)

	switch op {
	case "send":
		l.AppendSend(strings.Join(args, " "))
		return l.Flush()
	case "send-hex":
		return l.SendHex(strings.Join(args, ""))
	case "recv":
		var text string
		if size > 0 {
			text, err = l.Receive(size)
		} else {
			text, err = l.ReadUntil()
		}
		if err != nil {
			return err
		}
		fmt.Printf("Received: %s\n", text)
	case "recv-hex":
		data, err := l.ReceiveHex(size)
		if err != nil {
			return err
		}
		fmt.Printf("Received: %s\n", data)
	case "transaction":
		wait := cfg.Protocol.Timeout
		if len(args) > 2 {
			if wait, err = time.ParseDuration(args[2]); err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
		}
		resp, err := l.Transaction(args[0], size, wait)
		if err != nil {
			return err
		}
		fmt.Printf("Response: %s\n", resp)
	case "ping":
		rtt, err := l.Ping()
		if err != nil {
			fmt.Println("PING failed.")
			return err
		}
		fmt.Printf("PING response time: %v\n", rtt)
	case "autobaud":
		rate, err := l.Autobaud()
		if errors.Is(err, link.ErrAutobaudFailed) {
			fmt.Println("Autobauding failed.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Autobauding successful. Detected baudrate: %d\n", rate)
	}
	return nil
}

func runLoopback(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: loopback needs a text", errUsage)
	}
	enc, err := cfg.Protocol.ParseEncoding()
	if err != nil {
		return err
	}
	address := byte(cfg.Slave.Address)

	d := slave.NewDispatcher(address, enc, slave.OpenStore(config.PersistenceConfig{}))
	port := local.NewPort(d)
	defer port.Close()

	client, err := newClient(cfg, port)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	resp, err := client.WriteText(ctx, address, text)
	if err != nil {
		return err
	}
	if resp.IsException() {
		return &modbus.ExceptionError{FunctionCode: resp.FunctionCode, ExceptionCode: resp.ExceptionCode()}
	}
	read, err := client.ReadText(ctx, address)
	if err != nil {
		return err
	}
	fmt.Printf("Slave %d (%v): wrote %q, read back %q\n", address, enc, text, read)
	return nil
}
