package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/isethius/Autowebsites-sub001/stream"
)

// events upgrades the connection to a WebSocket and streams broker
// events as JSON text frames. The optional topics query parameter is a
// comma-separated list; without it the subscriber gets the firehose.
//
// Delivery is best-effort: a subscriber that cannot keep up drops
// events rather than stalling the publisher.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	topics := []string{stream.TopicFirehose}
	if v := r.URL.Query().Get("topics"); v != "" {
		topics = topics[:0]
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if err := stream.ValidateTopic(t); err != nil {
				badRequest(w, fmt.Sprintf("invalid topic %q: %v", t, err))
				return
			}
			topics = append(topics, t)
		}
		if len(topics) == 0 {
			topics = []string{stream.TopicFirehose}
		}
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		// UpgradeHTTP has already written the failure response.
		a.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	subID := "ws-" + uuid.NewString()
	sub := a.eng.Broker().Subscribe(subID, topics...)

	a.logger.Info("event feed connected",
		slog.String("subscriber_id", subID),
		slog.String("topics", strings.Join(topics, ",")),
	)

	defer func() {
		a.eng.Broker().RemoveSubscriber(subID)
		conn.Close() //nolint:errcheck // best-effort close on the way out
		a.logger.Info("event feed disconnected",
			slog.String("subscriber_id", subID),
			slog.Int64("dropped", sub.Dropped()),
		)
	}()

	// Drain client frames so closes and pings surface as read errors.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, readErr := wsutil.ReadClientData(conn); readErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			data, merr := json.Marshal(evt)
			if merr != nil {
				continue
			}
			if writeErr := wsutil.WriteServerText(conn, data); writeErr != nil {
				return
			}
		case <-done:
			return
		}
	}
}
