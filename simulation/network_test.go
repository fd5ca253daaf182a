// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

//go:build !js && go1.25

package simulation

import (
	"testing"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/vnet"
	"github.com/stretchr/testify/assert"
)

// network is a virtual WAN with the sender attached on the left and the
// receiver on the right. A chunk filter on the router models loss.
type network struct {
	wan   *vnet.Router
	left  *vnet.Net
	right *vnet.Net
}

func (n *network) Close() error {
	return n.wan.Stop()
}

func createVirtualNetwork(t *testing.T, filter vnet.ChunkFilter) *network {
	t.Helper()

	wan, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	assert.NoError(t, err)

	if filter != nil {
		wan.AddChunkFilter(filter)
	}

	left, err := vnet.NewNet(&vnet.NetConfig{
		StaticIPs: []string{"10.0.0.1"},
	})
	assert.NoError(t, err)
	err = wan.AddNet(left)
	assert.NoError(t, err)

	right, err := vnet.NewNet(&vnet.NetConfig{
		StaticIPs: []string{"10.0.0.2"},
	})
	assert.NoError(t, err)
	err = wan.AddNet(right)
	assert.NoError(t, err)

	err = wan.Start()
	assert.NoError(t, err)

	return &network{
		wan:   wan,
		left:  left,
		right: right,
	}
}
