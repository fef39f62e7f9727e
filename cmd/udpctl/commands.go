package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/wippyai/udp-sockets/dispatch"
	"github.com/wippyai/udp-sockets/socket"
)

// command is one parsed console line.
type command struct {
	name    string
	group   string
	address string
	payload string
	sockTyp string
	handle  int
	port    int
	enabled bool
}

const usage = `commands:
  create <id> [udp4|udp6]
  bind <id> [port] [address]
  send <id> <host:port> <message...>
  join <id> <group>
  drop <id> <group>
  broadcast <id> on|off
  close <id>
  destroy
  list`

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}

	cmd := command{name: strings.ToLower(fields[0])}
	args := fields[1:]

	switch cmd.name {
	case "destroy", "list", "help":
		return cmd, nil
	}

	if len(args) == 0 {
		return cmd, fmt.Errorf("%s: missing client id", cmd.name)
	}
	h, err := strconv.Atoi(args[0])
	if err != nil {
		return cmd, fmt.Errorf("%s: invalid client id %q", cmd.name, args[0])
	}
	cmd.handle = h
	args = args[1:]

	switch cmd.name {
	case "create":
		if len(args) > 0 {
			cmd.sockTyp = args[0]
		}

	case "bind":
		if len(args) > 0 {
			if cmd.port, err = strconv.Atoi(args[0]); err != nil {
				return cmd, fmt.Errorf("bind: invalid port %q", args[0])
			}
		}
		if len(args) > 1 {
			cmd.address = args[1]
		}

	case "send":
		if len(args) < 2 {
			return cmd, fmt.Errorf("send: need <host:port> <message>")
		}
		host, port, err := splitEndpoint(args[0])
		if err != nil {
			return cmd, fmt.Errorf("send: %w", err)
		}
		cmd.address, cmd.port = host, port
		cmd.payload = strings.Join(args[1:], " ")

	case "join", "drop":
		if len(args) != 1 {
			return cmd, fmt.Errorf("%s: need <group>", cmd.name)
		}
		cmd.group = args[0]

	case "broadcast":
		if len(args) != 1 {
			return cmd, fmt.Errorf("broadcast: need on|off")
		}
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			cmd.enabled = true
		case "off", "false", "0":
		default:
			return cmd, fmt.Errorf("broadcast: need on|off, got %q", args[0])
		}

	case "close":

	default:
		return cmd, fmt.Errorf("unknown command %q", cmd.name)
	}

	return cmd, nil
}

func splitEndpoint(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// run executes cmd and returns a one-line result. It blocks until the
// operation's future resolves.
func (c command) run(d *dispatch.Dispatcher, defaults socket.Options) (string, error) {
	switch c.name {
	case "help":
		return usage, nil

	case "list":
		hs := d.Handles()
		if len(hs) == 0 {
			return "no clients", nil
		}
		var b strings.Builder
		for i, h := range hs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(describe(d, h))
		}
		return b.String(), nil

	case "destroy":
		if err := d.DestroyAll().Err(); err != nil {
			return "", err
		}
		return "all clients closed", nil

	case "create":
		opts := defaults
		if c.sockTyp != "" {
			opts.Type = c.sockTyp
		}
		if err := d.CreateSocket(c.handle, opts); err != nil {
			return "", err
		}
		return fmt.Sprintf("created %d", c.handle), nil

	case "bind":
		res, err := d.Bind(c.handle, c.port, c.address).Result()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bound to %s", c.handle, net.JoinHostPort(res.Address, strconv.Itoa(res.Port))), nil

	case "send":
		if err := d.Send(c.handle, []byte(c.payload), c.port, c.address).Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d sent %d bytes to %s", c.handle, len(c.payload),
			net.JoinHostPort(c.address, strconv.Itoa(c.port))), nil

	case "join":
		if err := d.AddMembership(c.handle, c.group).Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d joined %s", c.handle, c.group), nil

	case "drop":
		if err := d.DropMembership(c.handle, c.group).Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d left %s", c.handle, c.group), nil

	case "broadcast":
		if err := d.SetBroadcast(c.handle, c.enabled).Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d broadcast=%t", c.handle, c.enabled), nil

	case "close":
		if err := d.Close(c.handle).Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("closed %d", c.handle), nil
	}

	return "", fmt.Errorf("unknown command %q", c.name)
}

func describe(d *dispatch.Dispatcher, h int) string {
	c, ok := d.Client(h)
	if !ok {
		return fmt.Sprintf("%d: gone", h)
	}
	local := "unbound"
	if addr, ok := c.LocalAddr(); ok && c.Bound() {
		local = addr.String()
	}
	s := fmt.Sprintf("%d: %s %s", h, c.Type(), local)
	if c.Broadcast() {
		s += " broadcast"
	}
	if groups := c.Groups(); len(groups) > 0 {
		s += " groups=" + strings.Join(groups, ",")
	}
	return s
}
