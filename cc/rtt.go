// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package cc provides the timer and window controllers driving the sender's
// retransmission behavior.
package cc

import "time"

const (
	rttAlpha   = 0.3
	initialRTT = time.Second
)

// RTTEstimator keeps a smoothed round-trip time estimate and derives the
// retransmission threshold from it. Samples must come only from
// acknowledgments of packets still in flight, so retransmitted segments are
// attributed to their most recent transmission.
type RTTEstimator struct {
	smoothed *ewma
}

// NewRTTEstimator returns an estimator seeded with a one second round trip.
func NewRTTEstimator() *RTTEstimator {
	return &RTTEstimator{
		smoothed: newEWMA(rttAlpha, initialRTT.Seconds()),
	}
}

// AddSample folds one measured round trip into the smoothed estimate.
func (e *RTTEstimator) AddSample(rtt time.Duration) {
	e.smoothed.update(rtt.Seconds())
}

// Estimate returns the current smoothed round-trip time.
func (e *RTTEstimator) Estimate() time.Duration {
	return time.Duration(e.smoothed.avg() * float64(time.Second))
}

// RetransmitThreshold returns how long a packet may stay unacknowledged
// before it is considered lost.
func (e *RTTEstimator) RetransmitThreshold() time.Duration {
	return 2 * e.Estimate()
}
