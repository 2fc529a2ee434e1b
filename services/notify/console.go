package notify

import (
	"context"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
)

// LogNotifier writes events to the logger instead of delivering them.
type LogNotifier struct {
	logger core.Logger
}

var _ duel.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev duel.Event) error {
	fields := map[string]interface{}{
		"request":  ev.RequestID,
		"duel":     ev.DuelID,
		"students": ev.StudentIDs,
	}
	if ev.WinnerID != nil {
		fields["winner"] = *ev.WinnerID
	}
	n.logger.Info(string(ev.Type), fields)
	return nil
}
