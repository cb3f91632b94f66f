package main

import (
	"bufio"
	pb "chat-relay/proto/chat"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

var errMalformedLine = errors.New("expected \"<to> <message>\"")

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:3001"`
	Identity      string `env:"CHAT_IDENTITY,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run opens one chat stream, prints what arrives and sends every stdin line.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish connection to the relay.
	conn, err := grpc.NewClient(config.ServerAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	// 4. Initiate the bidirectional stream, the identity travels as metadata.
	streamCtx := metadata.AppendToOutgoingContext(ctx, pb.IdentityMetadataKey, config.Identity)
	stream, err := pb.NewChatClient(conn).Chat(streamCtx)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}

	received := make(chan error, 1)
	go func() { received <- receive(stream, os.Stdout) }()

	// 5. Every stdin line is one message, EOF closes our side of the stream.
	go func() {
		if err := send(stream, os.Stdin, os.Stderr); err != nil {
			log.Warn("Stopped sending", "error", err)
		}
		_ = stream.CloseSend()
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit)", config.ServerAddress, config.Identity))

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case err := <-received:
		if err != nil && ctx.Err() == nil {
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		return exitOK, nil
	}
}

// receive prints incoming messages until the server ends the stream.
func receive(stream pb.Chat_ChatClient, out io.Writer) error {
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if s, ok := status.FromError(err); ok {
				return fmt.Errorf("%s: %s", s.Code(), s.Message())
			}
			return err
		}
		fmt.Fprintf(out, "%s %s\n", color.FgCyan.Render("["+msg.GetTo()+"]"), msg.GetMessage())
	}
}

func send(stream pb.Chat_ChatClient, in io.Reader, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := ParseLine(line)
		if err != nil {
			fmt.Fprintln(errOut, color.FgYellow.Render(err.Error()))
			continue
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseLine reads "<to> <message>", the message keeps its inner spaces.
func ParseLine(line string) (*pb.ChatMessage, error) {
	to, message, ok := strings.Cut(strings.TrimSpace(line), " ")
	message = strings.TrimSpace(message)
	if !ok || to == "" || message == "" {
		return nil, fmt.Errorf("%w, got %q", errMalformedLine, line)
	}
	return &pb.ChatMessage{To: to, Message: message}, nil
}
