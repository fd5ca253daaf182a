// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Command receiver binds an ephemeral UDP port, announces the port number on
// standard error, and writes the received stream to standard output. It runs
// until killed.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/pion/arq"
)

func main() {
	receiver, err := arq.NewReceiver()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addr, ok := receiver.LocalAddr().(*net.UDPAddr)
	if !ok {
		fmt.Fprintf(os.Stderr, "unexpected local address %v\n", receiver.LocalAddr())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, addr.Port)

	if err := receiver.Run(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
