package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/ballistics/internal/metrics"
)

// writeWindow is how long a single SSE write may block.
const writeWindow = 30 * time.Second

// client writes SSE frames for one playback connection.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// sendJSON sends v as an SSE message without an event id.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return c.send("", data)
}

// sendRows sends a batch whose last row is rows-1. The id lets a
// reconnecting EventSource resume after it via Last-Event-ID.
func (c *client) sendRows(rows int, data []byte) error {
	return c.send(strconv.Itoa(rows), data)
}

func (c *client) send(id string, data []byte) error {
	c.extendDeadline()

	var (
		n   int
		err error
	)
	if id != "" {
		n, err = fmt.Fprintf(c.w, "id: %s\ndata: %s\n\n", id, data)
	} else {
		n, err = fmt.Fprintf(c.w, "data: %s\n\n", data)
	}
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))
	return nil
}

// sendRetry sets the client's reconnect delay.
func (c *client) sendRetry(d time.Duration) error {
	c.extendDeadline()
	n, err := fmt.Fprintf(c.w, "retry: %d\n\n", d.Milliseconds())
	if err != nil {
		return fmt.Errorf("retry write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	return nil
}

// sendKeepalive sends an SSE comment line (":\n\n").
func (c *client) sendKeepalive() error {
	c.extendDeadline()
	n, err := fmt.Fprint(c.w, ":\n\n")
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}

	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return nil
}

func (c *client) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeWindow)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}

// resumeRow parses the Last-Event-ID header sent by a reconnecting client.
// It returns 0 when absent or out of range.
func resumeRow(r *http.Request, rows int) int {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > rows {
		return 0
	}
	return n
}
