// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Command sender reads a byte stream from standard input and delivers it
// reliably to the receiver at the given host and port. It exits 0 once the
// whole stream has been acknowledged.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pion/arq"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <host> <port>\n", os.Args[0])
		os.Exit(2)
	}
	host, portArg := os.Args[1], os.Args[2]
	port, err := strconv.Atoi(portArg)
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "invalid port %q\n", portArg)
		os.Exit(2)
	}

	sender, err := arq.NewSender()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := sender.Send(os.Stdin, net.JoinHostPort(host, portArg)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
