package server

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/gridq/internal/catalog"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connecting to embedded NATS: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func natsQuery(t *testing.T, nc *nats.Conn, dataset, body string) NATSReply {
	t.Helper()
	msg, err := nc.Request(QuerySubjectPrefix+dataset, []byte(body), 5*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var reply NATSReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatalf("decoding reply: %v; data: %s", err, msg.Data)
	}
	return reply
}

func TestNATSResponder(t *testing.T) {
	nc := startTestNATS(t)
	r := NewNATSResponder(newTestServer(t), nc)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = r.Stop() })

	reply := natsQuery(t, nc, "people", `{"sort_by":"first_name","sort_direction":"desc","page_size":3}`)
	if reply.Error != "" || reply.Result == nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.Code != "ok" || reply.Result.Total != 90 || len(reply.Result.Rows) != 3 {
		t.Fatalf("result = %+v", reply.Result)
	}
	if reply.Result.Rows[0]["first_name"] != "Zea" {
		t.Errorf("first = %v, want Zea", reply.Result.Rows[0]["first_name"])
	}

	reply = natsQuery(t, nc, "people", "")
	if reply.Result == nil || len(reply.Result.Rows) != 10 || reply.Result.Page != 1 {
		t.Errorf("empty body reply = %+v", reply)
	}
}

func TestNATSResponder_Errors(t *testing.T) {
	nc := startTestNATS(t)
	r := NewNATSResponder(newTestServer(t), nc)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = r.Stop() })

	reply := natsQuery(t, nc, "nope", "{}")
	if reply.Code != "not_found" || reply.Result != nil {
		t.Fatalf("reply = %+v", reply)
	}
	if err := ReplyError(reply); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("ReplyError = %v, want ErrNotFound", err)
	}

	reply = natsQuery(t, nc, "pending", "{}")
	if err := ReplyError(reply); !errors.Is(err, catalog.ErrNotLoaded) {
		t.Errorf("ReplyError = %v, want ErrNotLoaded", err)
	}

	reply = natsQuery(t, nc, "people", "{broken")
	if reply.Code != "invalid" {
		t.Errorf("bad body code = %q, want invalid", reply.Code)
	}
}
