package mocks

import (
	"context"
	"net"
	"sync"
	"testing"

	otlpcollector "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
)

type mockTracingServer struct {
	otlpcollector.UnimplementedTraceServiceServer
	addr string

	mu          sync.Mutex
	exportCount int
	spanCount   int
}

var _ otlpcollector.TraceServiceServer = (*mockTracingServer)(nil)

func (s *mockTracingServer) Export(_ context.Context, req *otlpcollector.ExportTraceServiceRequest) (*otlpcollector.ExportTraceServiceResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exportCount++
	for _, rs := range req.GetResourceSpans() {
		for _, ss := range rs.GetScopeSpans() {
			s.spanCount += len(ss.GetSpans())
		}
	}
	return &otlpcollector.ExportTraceServiceResponse{}, nil
}

// NewMockTracingServer starts an OTLP trace collector on a random local port. It is stopped when the test ends.
func NewMockTracingServer(t testing.TB) *mockTracingServer {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	mockServer := &mockTracingServer{addr: lis.Addr().String()}
	server := grpc.NewServer()
	otlpcollector.RegisterTraceServiceServer(server, mockServer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(lis)
	}()
	t.Cleanup(func() {
		server.Stop()
		<-done
	})

	return mockServer
}

// Addr returns the host:port the server listens on.
func (s *mockTracingServer) Addr() string {
	return s.addr
}

func (s *mockTracingServer) GetExportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportCount
}

func (s *mockTracingServer) GetSpanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spanCount
}
