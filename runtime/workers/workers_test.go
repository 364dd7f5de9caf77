package workers

import (
	"context"
	"fanous-live/domain"
	"fanous-live/observability"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestStatsWorker_Sample_Current_Process(t *testing.T) {
	req := require.New(t)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)
	w := NewStatsWorker(slog.Default(), observability.NewMonitoringManager(slog.Default()), func() int { return 3 }, time.Second)

	stats, err := w.sample(p)

	req.NoError(err)
	req.Equal(int32(os.Getpid()), stats.PID)
	req.NotZero(stats.RSS)
	req.Positive(stats.Goroutines)
	req.Equal(3, stats.OnlineUsers)
	req.NotEqual(domain.PidStatus(""), stats.Status)
}

func TestStatsWorker_Feeds_Monitoring(t *testing.T) {
	req := require.New(t)
	monitoring := observability.NewMonitoringManager(slog.Default())
	w := NewStatsWorker(slog.Default(), monitoring, func() int { return 1 }, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	req.Eventually(func() bool {
		return monitoring.GetLatest().OnlineUsers == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	req.NoError(<-done)
}

func TestHTTPServerWorker_Serves_Until_Canceled(t *testing.T) {
	req := require.New(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	w := NewHTTPServerWorker(slog.Default(), "127.0.0.1:0", handler, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()
	addr := <-w.Listening()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", addr))
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	req.NoError(err)
	req.Equal("pong", string(body))

	// When the context is canceled the worker returns cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server worker should have stopped")
	}
}

func TestHTTPServerWorker_Listen_Error(t *testing.T) {
	w := NewHTTPServerWorker(slog.Default(), "256.0.0.1:99999", http.NotFoundHandler(), time.Second)
	require.Error(t, w.Run(context.Background()))
}

func TestHealthServerWorker_Reports_Serving(t *testing.T) {
	req := require.New(t)
	listener := bufconn.Listen(1 << 20)
	w := NewHealthServerWorker(slog.Default(), "bufnet")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.serve(ctx, listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})

	req.NoError(err)
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	req.NoError(<-done)
}
