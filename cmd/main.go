package main

import (
	"chat-relay/infrastructure/bus"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/internal"
	pb "chat-relay/proto/chat"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay, serves until a signal arrives and reports an exit code.
// Every deferred cleanup runs before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Bus
	gateway, err := bus.NewGateway(logger, bus.Driver(config.BusDriver), config.RedisNode)
	if err != nil {
		return exitConfig, err
	}
	defer func() {
		logger.Info("Closing bus gateway...")
		_ = gateway.Close()
	}()
	if err := gateway.Ping(ctx); err != nil {
		// Sessions retry on their own connections, the relay still starts
		logger.Warn("Bus is not reachable yet", "error", err)
	}

	// 3. Sessions & background workers
	registry := runtime.NewRegistry()
	sessions := runtime.NewSessionManager(logger, gateway, registry, config.ConnectionBufferSize)

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoringWorker(logger, sessions.ActiveSessions, config.MetricInterval))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	errChan := make(chan error, 2)

	if config.DebugPort != 0 {
		debug := internal.NewDebugServer(logger, config.DebugAddress(), sessions.ActiveSessions)
		go func() {
			if err := debug.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	// 4. gRPC Server Setup
	address := config.Address()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)),
		grpc.ChainStreamInterceptor(server.StreamLoggingInterceptor(logger)),
	)
	pb.RegisterChatServer(s, server.NewChatServer(logger, sessions))
	pb.RegisterPingPongServer(s, server.NewPingPongServer(logger))

	go func() {
		logger.Info("Starting gRPC server", "address", address, "bus", config.BusDriver, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		s.Stop()
		sup.Stop()
		return exitRuntime, err
	}

	// 6. Final Cleanup
	logger.Info("Shutting down gracefully...")
	shutdown(logger, s, config.ShutdownTimeout)
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

// shutdown lets open chat streams end on their own, then cuts the rest.
func shutdown(logger *slog.Logger, s *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("Graceful stop timed out, closing remaining streams", "timeout", timeout)
		s.Stop()
		<-stopped
	}
}
