package transition

import (
	"context"

	"github.com/AltairaLabs/DialogKit/processor"
	"github.com/AltairaLabs/DialogKit/statestore"
	"github.com/AltairaLabs/DialogKit/types"
)

// Sink delivers outbound messages to a platform adapter. The engine only
// ever talks to this interface; it never touches a platform API directly.
type Sink interface {
	SendText(ctx context.Context, key statestore.SessionKey, text string) error
	SendButtons(ctx context.Context, key statestore.SessionKey, text string, buttons []types.Button) error
	SendMedia(ctx context.Context, key statestore.SessionKey, items []types.MediaItem, caption string, buttons []types.Button) error
}

// Send kinds reported in logs and events.
const (
	KindText    = "text"
	KindButtons = "buttons"
	KindMedia   = "media"
)

// Deliver sends a processed step through the sink, picking the richest send
// the step's content calls for. Returns the send kind used.
func Deliver(ctx context.Context, sink Sink, key statestore.SessionKey, ps *processor.ProcessedStep) (string, error) {
	switch {
	case len(ps.Media) > 0:
		return KindMedia, sink.SendMedia(ctx, key, ps.Media, ps.Text, ps.Buttons)
	case len(ps.Buttons) > 0:
		return KindButtons, sink.SendButtons(ctx, key, ps.Text, ps.Buttons)
	default:
		return KindText, sink.SendText(ctx, key, ps.Text)
	}
}
