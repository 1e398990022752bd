package slackbot

import (
	"context"

	"github.com/slack-go/slack/socketmode"
)

// RunSocketMode receives interactions over a Socket Mode connection until ctx
// is done.
func (d *Dispatcher) RunSocketMode(ctx context.Context, sm *socketmode.Client) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-sm.Events:
				d.handleSocketEvent(ctx, sm, evt)
			}
		}
	}()
	return sm.RunContext(ctx)
}

func (d *Dispatcher) handleSocketEvent(ctx context.Context, sm *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		d.logger.Info("socket mode connected")
		return
	case socketmode.EventTypeConnectionError:
		d.logger.Warn("socket mode connection error", "data", evt.Data)
		return
	case socketmode.EventTypeInteractive:
	default:
		return
	}
	if evt.Request == nil {
		return
	}

	reply, err := d.Dispatch(ctx, evt.Request.Payload)
	if err != nil {
		d.logger.Error("interaction dispatch failed", "error", err)
		sm.Ack(*evt.Request)
		return
	}
	if reply.Ack != nil {
		sm.Ack(*evt.Request, reply.Ack)
	} else {
		sm.Ack(*evt.Request)
	}
	if reply.FollowUp != nil {
		go reply.FollowUp(ctx)
	}
}
