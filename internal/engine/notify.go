package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/metrics"
	"github.com/donaldgifford/marketplace-sync/internal/notify"
)

const notifyTimeout = 10 * time.Second

// notify delivers ev without affecting the caller's outcome. It runs even
// when ctx is already canceled so timeouts still get reported.
func (e *Engine) notify(ctx context.Context, ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, ev); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		e.log.Warn("notification failed", "title", ev.Title, "error", err)
	}
}

// syncEvent describes a failed run, or a partial one when err is nil.
func syncEvent(sum *Summary, err error) notify.Event {
	ev := notify.Event{
		Platform: string(sum.Platform),
		Fields: []notify.Field{
			{Name: "Worksheet", Value: sum.Worksheet},
			{Name: "Records", Value: strconv.Itoa(sum.Records)},
			{Name: "Export", Value: sum.ExportPath},
		},
	}
	kind := platformTitle(sum.Platform) + " " + sum.Kind
	if err != nil {
		ev.Level = notify.LevelWarning
		ev.Title = kind + " sync failed"
		ev.Message = err.Error()
		var pe *PhaseError
		if errors.As(err, &pe) {
			ev.Fields = append(ev.Fields, notify.Field{Name: "Phase", Value: pe.Phase})
			if pe.Phase == PhaseToken && errors.Is(err, auth.ErrReauthRequired) {
				ev.Level = notify.LevelCritical
			}
		}
		return ev
	}
	ev.Level = notify.LevelWarning
	ev.Title = kind + " sync incomplete"
	ev.Message = "Some windows were skipped after retries:\n" + strings.Join(sum.Skipped, "\n")
	return ev
}

func tokenEvent(p credential.Platform, err error) notify.Event {
	ev := notify.Event{
		Level:    notify.LevelWarning,
		Title:    platformTitle(p) + " token refresh failed",
		Message:  err.Error(),
		Platform: string(p),
	}
	if errors.Is(err, auth.ErrReauthRequired) {
		ev.Level = notify.LevelCritical
		ev.Title = platformTitle(p) + " needs reauthorization"
	}
	return ev
}
