package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
)

// Subjects for NATS request/reply queries. A request on
// "gridq.query.<dataset>" carries a JSON model.Query (an empty body is the
// zero query) and receives a NATSReply.
const (
	QuerySubjectPrefix = "gridq.query."
	QueryQueueGroup    = "gridq-query"
)

// NATSReply is the body of every reply on a query subject.
type NATSReply struct {
	Result *model.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	Code   string        `json:"code,omitempty"` // ok, not_found, not_loaded, invalid, error
}

// NATSResponder serves queries arriving over NATS.
type NATSResponder struct {
	qs      *QueryServer
	conn    *nats.Conn
	sub     *nats.Subscription
	timeout time.Duration
}

// NewNATSResponder returns a responder using conn. Start must be called to
// begin serving.
func NewNATSResponder(qs *QueryServer, conn *nats.Conn) *NATSResponder {
	return &NATSResponder{qs: qs, conn: conn, timeout: 30 * time.Second}
}

// Start subscribes to gridq.query.* in a queue group so several servers can
// share the load.
func (r *NATSResponder) Start() error {
	sub, err := r.conn.QueueSubscribe(QuerySubjectPrefix+"*", QueryQueueGroup, r.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s*: %w", QuerySubjectPrefix, err)
	}
	if err := r.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	r.sub = sub
	return nil
}

// Stop drains the subscription so in-flight requests are answered.
func (r *NATSResponder) Stop() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Drain()
}

func (r *NATSResponder) handle(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	dataset := strings.TrimPrefix(msg.Subject, QuerySubjectPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if id := msg.Header.Get(RequestIDHeader); id != "" {
		ctx = WithRequestID(ctx, id)
	}

	var reply NATSReply
	var q model.Query
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &q); err != nil {
			reply.Error = "invalid JSON query: " + err.Error()
			reply.Code = errorStatus(inputError(reply.Error))
			r.respond(msg, reply)
			return
		}
	}

	res, err := r.qs.Query(ctx, TransportNATS, dataset, q)
	if err != nil {
		reply.Error = err.Error()
		reply.Code = errorStatus(err)
	} else {
		reply.Result = &res
		reply.Code = errorStatus(nil)
	}
	r.respond(msg, reply)
}

func (r *NATSResponder) respond(msg *nats.Msg, reply NATSReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		r.qs.logger.Error("marshal nats reply", "subject", msg.Subject, "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		r.qs.logger.Warn("nats respond failed", "subject", msg.Subject, "err", err)
	}
}

// ReplyError converts a failed NATSReply back into an error that matches the
// catalog sentinels with errors.Is.
func ReplyError(reply NATSReply) error {
	switch reply.Code {
	case "not_found":
		return wrapSentinel(catalog.ErrNotFound, reply.Error)
	case "not_loaded":
		return wrapSentinel(catalog.ErrNotLoaded, reply.Error)
	}
	return errors.New(reply.Error)
}

func wrapSentinel(sentinel error, msg string) error {
	return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(msg, sentinel.Error()+": "))
}
