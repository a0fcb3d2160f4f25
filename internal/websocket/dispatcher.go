// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/metrics"
)

// DeliveryReport summarizes one fan-out.
type DeliveryReport struct {
	Group     string `json:"group"`
	Attempted int    `json:"attempted"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// MemberSource supplies the member snapshot for a group.
type MemberSource interface {
	MembersOf(groupKey string) []Handle
}

// Dispatcher fans an envelope out to every member of a group. The sender
// is a member like any other and receives its own message.
type Dispatcher struct {
	members MemberSource
}

// NewDispatcher creates a dispatcher over members.
func NewDispatcher(members MemberSource) *Dispatcher {
	return &Dispatcher{members: members}
}

// Broadcast delivers env to a snapshot of the group's members. A failed
// delivery is logged and counted and never stops delivery to the rest.
// Members that join after the snapshot do not receive env.
func (d *Dispatcher) Broadcast(ctx context.Context, groupKey string, env Envelope) DeliveryReport {
	targets := d.members.MembersOf(groupKey)
	report := DeliveryReport{Group: groupKey, Attempted: len(targets)}
	if len(targets) == 0 {
		return report
	}

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
		failed    atomic.Int64
	)
	for _, h := range targets {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			if err := h.Deliver(ctx, env); err != nil {
				failed.Add(1)
				reason := deliveryFailureReason(err)
				metrics.RecordDeliveryFailure(reason)
				logging.Debug().
					Str("component", "dispatcher").
					Str("group", groupKey).
					Str("recipient", h.ID()).
					Str("reason", reason).
					Err(err).
					Msg("delivery failed")
				return
			}
			delivered.Add(1)
		}(h)
	}
	wg.Wait()

	report.Delivered = int(delivered.Load())
	report.Failed = int(failed.Load())
	return report
}

func deliveryFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrDeliveryTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
