package dispatch

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/distributed_lab/running"
)

const inventoryTopic = "inv"

type subscribeFrame struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
}

// Feed is a single upstream push-notification connection. A connect
// failure within the timeout is fatal at construction; once running,
// errors are logged and the listen loop reconnects and re-subscribes.
type Feed struct {
	name           string
	endpoint       string
	connectTimeout time.Duration
	dispatcher     *Dispatcher
	log            *logan.Entry

	conn *websocket.Conn
}

func NewFeed(name, endpoint string, connectTimeout time.Duration, d *Dispatcher, log *logan.Entry) (*Feed, error) {
	f := &Feed{
		name:           name,
		endpoint:       endpoint,
		connectTimeout: connectTimeout,
		dispatcher:     d,
		log:            log.WithField("feed", name),
	}

	if err := f.connect(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to feed", logan.F{"feed": name})
	}
	return f, nil
}

func (f *Feed) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: f.connectTimeout}
	conn, _, err := dialer.Dial(f.endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "failed to dial feed endpoint")
	}

	// subscribe is re-sent on every (re)connect
	if err = conn.WriteJSON(subscribeFrame{Op: "subscribe", Topic: inventoryTopic}); err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to subscribe to inventory updates")
	}

	f.conn = conn
	f.log.Info("connected to feed")
	return nil
}

// Run keeps the listen loop alive until the context is canceled.
func (f *Feed) Run(ctx context.Context) {
	running.WithBackOff(ctx, f.log, "feed-"+f.name, f.listen, time.Second, time.Second, time.Minute)
}

func (f *Feed) listen(ctx context.Context) error {
	if f.conn == nil {
		if err := f.connect(); err != nil {
			return err
		}
	}

	// ReadJSON blocks with no deadline, so a silent feed would never
	// observe cancellation; closing the conn unblocks it
	conn := f.conn
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var n Notification
		if err := f.conn.ReadJSON(&n); err != nil {
			f.conn.Close()
			f.conn = nil
			if running.IsCancelled(ctx) {
				return nil
			}
			return errors.Wrap(err, "failed to read feed frame")
		}
		if n.TxID == "" || len(n.Vout) == 0 {
			continue
		}

		f.dispatcher.Dispatch(f.name, n)
	}
}
