package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/gridq/internal/events"
	"github.com/alfredjeanlab/gridq/internal/model"
	"github.com/alfredjeanlab/gridq/internal/server"
)

// NATSClient sends queries as NATS requests on gridq.query.<dataset>.
type NATSClient struct {
	conn *nats.Conn
	own  bool
}

// NewNATSClient connects to url.
func NewNATSClient(url string) (*NATSClient, error) {
	nc, err := events.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSClient{conn: nc, own: true}, nil
}

// NewNATSClientConn wraps an existing connection, which Close leaves open.
func NewNATSClientConn(nc *nats.Conn) *NATSClient {
	return &NATSClient{conn: nc}
}

func (c *NATSClient) Query(ctx context.Context, dataset string, q model.Query) (model.Result, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return model.Result{}, fmt.Errorf("marshal query: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, server.QuerySubjectPrefix+dataset, data)
	if err != nil {
		return model.Result{}, fmt.Errorf("nats request: %w", err)
	}

	var reply server.NATSReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return model.Result{}, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" || reply.Result == nil {
		return model.Result{}, server.ReplyError(reply)
	}
	return *reply.Result, nil
}

func (c *NATSClient) Close() error {
	if c.own {
		c.conn.Close()
	}
	return nil
}
