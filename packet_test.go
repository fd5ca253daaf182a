// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package arq

import (
	"bytes"
	"crypto/sha1" //nolint:gosec
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		kind    Kind
		seq     uint16
		payload []byte
	}{
		{
			name: "ack",
			kind: KindAck,
			seq:  42,
		},
		{
			name:    "data single byte",
			kind:    KindData,
			seq:     0,
			payload: []byte{0x41},
		},
		{
			name:    "data full segment",
			kind:    KindData,
			seq:     65535,
			payload: bytes.Repeat([]byte{0xfe}, MaxPayloadSize),
		},
		{
			name: "data empty payload",
			kind: KindData,
			seq:  7,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Packet{Kind: tc.kind, Seq: tc.seq, Payload: tc.payload}
			raw, err := in.Marshal()
			require.NoError(t, err)
			assert.Equal(t, minPacketSize+len(tc.payload), len(raw))

			var out Packet
			require.NoError(t, out.Unmarshal(raw))
			assert.Equal(t, tc.kind, out.Kind)
			assert.Equal(t, tc.seq, out.Seq)
			assert.Equal(t, tc.payload, out.Payload)
		})
	}
}

func TestMarshalPayloadTooLarge(t *testing.T) {
	pkt := Packet{
		Kind:    KindData,
		Payload: make([]byte, MaxPayloadSize+1),
	}
	_, err := pkt.Marshal()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestUnmarshalTooShort(t *testing.T) {
	for _, n := range []int{0, 1, headerSize, minPacketSize - 1} {
		var pkt Packet
		assert.ErrorIs(t, pkt.Unmarshal(make([]byte, n)), ErrPacketTooShort)
	}
}

func TestUnmarshalBitFlip(t *testing.T) {
	in := Packet{Kind: KindData, Seq: 3, Payload: []byte("hello")}
	raw, err := in.Marshal()
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), raw...)
			flipped[i] ^= 1 << bit

			var out Packet
			assert.Error(t, out.Unmarshal(flipped), "byte %d bit %d", i, bit)
		}
	}
}

func TestUnmarshalUnknownKind(t *testing.T) {
	body := []byte{0x02, 0x00, 0x01, 'x'}
	sum := sha1.Sum(body) //nolint:gosec
	raw := append(body, sum[:]...)

	var pkt Packet
	assert.ErrorIs(t, pkt.Unmarshal(raw), ErrUnknownKind)
}

func TestKindString(t *testing.T) {
	cases := []struct {
		value    Kind
		expected string
	}{
		{
			value:    KindData,
			expected: "data",
		},
		{
			value:    KindAck,
			expected: "ack",
		},
		{
			value:    17,
			expected: "invalid kind: 17",
		},
	}
	for _, tc := range cases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.value.String())
		})
	}
}
