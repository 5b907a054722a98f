package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// startBufconn serves qs over an in-memory listener and returns a connected client.
func startBufconn(t *testing.T, qs *QueryServer, token string) *GridServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(qs, token)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc client: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewGridServiceClient(conn)
}

func TestGRPC_Health(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "secret")
	// Health is exempt from auth.
	resp, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if got := resp.GetFields()["status"].GetStringValue(); got != "ok" {
		t.Fatalf("status = %q", got)
	}
}

func TestGRPC_Fetch(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "")

	req, err := QueryToProto("people", model.Query{Page: 2, PageSize: 5, SortBy: "id", SortDirection: model.Descending})
	if err != nil {
		t.Fatal(err)
	}
	var header metadata.MD
	resp, err := client.Fetch(context.Background(), req, grpc.Header(&header))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	res := ResultFromProto(resp)
	if res.Total != 90 || res.Page != 2 || res.PageSize != 5 || len(res.Rows) != 5 {
		t.Fatalf("total=%d page=%d size=%d rows=%d", res.Total, res.Page, res.PageSize, len(res.Rows))
	}
	if res.Rows[0]["id"] != float64(85) {
		t.Errorf("first id = %v, want 85", res.Rows[0]["id"])
	}
	if _, ok := res.Rows[0]["birth_date"].(string); !ok {
		t.Errorf("birth_date = %#v, want string", res.Rows[0]["birth_date"])
	}
	if len(header.Get("x-request-id")) == 0 {
		t.Error("missing x-request-id response header")
	}
}

func TestGRPC_FetchShorthandSort(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "")
	req, _ := structpb.NewStruct(map[string]any{
		"dataset":   "people",
		"sort":      "first_name",
		"page_size": 3,
	})
	resp, err := client.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	res := ResultFromProto(resp)
	if len(res.Rows) != 3 || res.Rows[0]["first_name"] != "Adena" || res.Rows[2]["first_name"] != "Ailis" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestGRPC_FetchErrors(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "")

	for _, tc := range []struct {
		name string
		req  map[string]any
		want codes.Code
	}{
		{"missing dataset", map[string]any{}, codes.InvalidArgument},
		{"fractional page", map[string]any{"dataset": "people", "page": 1.5}, codes.InvalidArgument},
		{"string page", map[string]any{"dataset": "people", "page": "2"}, codes.InvalidArgument},
		{"unknown", map[string]any{"dataset": "nope"}, codes.NotFound},
		{"not loaded", map[string]any{"dataset": "pending"}, codes.Unavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req, err := structpb.NewStruct(tc.req)
			if err != nil {
				t.Fatal(err)
			}
			_, err = client.Fetch(context.Background(), req)
			if status.Code(err) != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGRPC_ListDatasets(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "")
	resp, err := client.ListDatasets(context.Background())
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	infos := DatasetsFromProto(resp)
	if len(infos) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(infos))
	}
	byName := datasetsByName(infos)
	if people := byName["people"]; people.Name != "people" || people.Rows != 90 || people.LoadedAt == nil || people.SnapshotID == "" {
		t.Errorf("people = %+v", people)
	}
	if pending, ok := byName["pending"]; !ok || pending.Loaded {
		t.Errorf("pending = %+v", pending)
	}
}

func TestGRPC_Auth(t *testing.T) {
	client := startBufconn(t, newTestServer(t), "secret")
	req, _ := QueryToProto("people", model.Query{})

	if _, err := client.Fetch(context.Background(), req); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer secret")
	if _, err := client.Fetch(ctx, req); err != nil {
		t.Fatalf("authorized Fetch: %v", err)
	}
}
