package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/gridq/internal/idgen"
)

// RequestIDHeader carries the request ID on HTTP responses and gRPC metadata.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDInterceptor attaches a request ID to every unary RPC, reusing the
// caller's x-request-id metadata when present, and echoes it as a header.
func RequestIDInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(strings.ToLower(RequestIDHeader)); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = idgen.Request()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(strings.ToLower(RequestIDHeader), id))
	return handler(WithRequestID(ctx, id), req)
}

// LoggingInterceptor logs every unary RPC with its status code. Successful
// calls log at debug; queries are the hot path.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	level := slog.LevelDebug
	attrs := []any{
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"request_id", RequestIDFromContext(ctx),
		"duration", time.Since(start),
	}
	if err != nil {
		level = slog.LevelWarn
		if status.Code(err) == codes.Internal || status.Code(err) == codes.Unknown {
			level = slog.LevelError
		}
		attrs = append(attrs, "err", err)
	}
	slog.Log(ctx, level, "rpc completed", attrs...)
	return resp, err
}

// RecoveryInterceptor turns a panic in a handler into codes.Internal and logs
// the stack.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in gRPC handler",
				"method", info.FullMethod,
				"request_id", RequestIDFromContext(ctx),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// checkBearer validates an Authorization value against token. The returned
// message is safe to show the caller.
func checkBearer(authorization, token string) (string, bool) {
	if authorization == "" {
		return "missing authorization header", false
	}
	provided, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return "invalid authorization scheme", false
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return "invalid token", false
	}
	return "", true
}

// AuthInterceptor requires "authorization: Bearer <token>" metadata on every
// RPC except Health. An empty token disables auth.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if token == "" || info.FullMethod == GridService_Health_FullMethodName {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		var authorization string
		if vals := md.Get("authorization"); len(vals) > 0 {
			authorization = vals[0]
		}
		if msg, ok := checkBearer(authorization, token); !ok {
			return nil, status.Error(codes.Unauthenticated, msg)
		}
		return handler(ctx, req)
	}
}

// authExempt lists the unauthenticated HTTP endpoints.
var authExempt = map[string]bool{
	"/v1/health": true,
	"/metrics":   true,
}

// AuthMiddleware requires "Authorization: Bearer <token>" on every request
// except GET /v1/health and GET /metrics. An empty token disables auth.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && authExempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if msg, ok := checkBearer(r.Header.Get("Authorization"), token); !ok {
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware assigns a request ID (or keeps the caller's), exposes it
// in the response header and logs the request on completion.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = idgen.Request()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(WithRequestID(r.Context(), id)))

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", id,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets the event stream flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
