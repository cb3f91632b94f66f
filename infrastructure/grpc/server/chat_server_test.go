package server

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/bus"
	pb "chat-relay/proto/chat"
	"chat-relay/runtime"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const waitFor = 2 * time.Second

type harness struct {
	bus      *bus.EmbeddedGateway
	registry *runtime.Registry
	conn     *grpc.ClientConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	gateway, err := bus.NewEmbeddedGateway(log)
	require.NoError(t, err)
	registry := runtime.NewRegistry()
	manager := runtime.NewSessionManager(log, gateway, registry, 4)

	listener := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainStreamInterceptor(StreamLoggingInterceptor(log)))
	pb.RegisterChatServer(srv, NewChatServer(log, manager))
	pb.RegisterPingPongServer(srv, NewPingPongServer(log))
	go func() { _ = srv.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		_ = gateway.Close()
	})
	return &harness{bus: gateway, registry: registry, conn: conn}
}

func (h *harness) connect(t *testing.T, ctx context.Context, identity string) pb.Chat_ChatClient {
	t.Helper()
	if identity != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, pb.IdentityMetadataKey, identity)
	}
	stream, err := pb.NewChatClient(h.conn).Chat(ctx)
	require.NoError(t, err)
	return stream
}

// connectActive waits for the welcome message so the identity topic is subscribed.
func (h *harness) connectActive(t *testing.T, ctx context.Context, identity string) pb.Chat_ChatClient {
	t.Helper()
	stream := h.connect(t, ctx, identity)
	welcome := recv(t, stream)
	require.Equal(t, "You are connected with id: "+identity, welcome.GetMessage())
	return stream
}

func recv(t *testing.T, stream pb.Chat_ChatClient) *pb.ChatMessage {
	t.Helper()
	type result struct {
		msg *pb.ChatMessage
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := stream.Recv()
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.msg
	case <-time.After(waitFor):
		require.Fail(t, "no message received")
		return nil
	}
}

func TestChatServer_WelcomeIsTheFirstMessage(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := h.connect(t, ctx, "alice")
	msg := recv(t, stream)

	req.Equal("alice", msg.GetTo())
	req.Equal("You are connected with id: alice", msg.GetMessage())
	req.Equal(1, h.registry.Count())
}

func TestChatServer_MissingIdentity_IsRejected(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := h.connect(t, ctx, "")
	_, err := stream.Recv()

	req.Error(err)
	req.Equal(codes.InvalidArgument, status.Code(err))
	req.Equal(0, h.registry.Count())
}

func TestChatServer_BusUnavailable_IsRejected(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.bus.Shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := h.connect(t, ctx, "alice")
	_, err := stream.Recv()

	req.Equal(codes.Unavailable, status.Code(err))
	req.Equal(0, h.registry.Count())
}

func TestChatServer_AliceTalksToBob(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.connectActive(t, ctx, "alice")
	bob := h.connectActive(t, ctx, "bob")

	req.NoError(alice.Send(&pb.ChatMessage{To: "bob", Message: "hi"}))
	got := recv(t, bob)
	req.Equal("bob", got.GetTo())
	req.Equal("hi", got.GetMessage())

	req.NoError(bob.Send(&pb.ChatMessage{To: "alice", Message: "hello back"}))
	got = recv(t, alice)
	req.Equal("alice", got.GetTo())
	req.Equal("hello back", got.GetMessage())
}

func TestChatServer_MessagesKeepTheirOrder(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.connectActive(t, ctx, "alice")
	bob := h.connectActive(t, ctx, "bob")

	payloads := []string{"one", "two", "three", "four", "five", "six"}
	for _, payload := range payloads {
		req.NoError(alice.Send(&pb.ChatMessage{To: "bob", Message: payload}))
	}
	for _, payload := range payloads {
		req.Equal(payload, recv(t, bob).GetMessage())
	}
}

func TestChatServer_UnknownRecipient_DoesNotBreakTheSession(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.connectActive(t, ctx, "alice")

	req.NoError(alice.Send(&pb.ChatMessage{To: "nobody", Message: "lost"}))
	req.NoError(alice.Send(&pb.ChatMessage{To: "", Message: "invalid"}))
	req.NoError(alice.Send(&pb.ChatMessage{To: "alice", Message: "note to self"}))

	got := recv(t, alice)
	req.Equal("note to self", got.GetMessage())
}

func TestChatServer_ClientCloseSend_ReleasesTheSession(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.connectActive(t, ctx, "alice")
	req.Equal(1, h.bus.SubscriberCount(domain.Identity("alice").Topic()))

	req.NoError(alice.CloseSend())
	_, err := alice.Recv()
	req.ErrorIs(err, io.EOF)

	req.Eventually(func() bool {
		return h.registry.Count() == 0 && h.bus.SubscriberCount("alice") == 0
	}, waitFor, 10*time.Millisecond)
}

func TestChatServer_ClientCancel_ReleasesTheSession(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	h.connectActive(t, ctx, "alice")
	cancel()

	req.Eventually(func() bool {
		return h.registry.Count() == 0 && h.bus.SubscriberCount("alice") == 0
	}, waitFor, 10*time.Millisecond)
}

func TestChatServer_ConcurrentSessionsOfSameIdentity(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := h.connectActive(t, ctx, "carol")
	second := h.connectActive(t, ctx, "carol")
	sender := h.connectActive(t, ctx, "dave")

	req.NoError(sender.Send(&pb.ChatMessage{To: "carol", Message: "both of you"}))
	req.Equal("both of you", recv(t, first).GetMessage())
	req.Equal("both of you", recv(t, second).GetMessage())
}

func TestPingPongServer_SendPing(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	pong, err := pb.NewPingPongClient(h.conn).SendPing(context.Background(), &pb.Ping{})

	req.NoError(err)
	req.Equal("pong", pong.GetMessage())
}

func TestPingPongServer_SendPing_PlainProtobufClient(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Ping carries no field and Pong shares the StringValue layout
	pong := &wrapperspb.StringValue{}
	err := h.conn.Invoke(context.Background(), pb.PingPong_SendPing_FullMethodName, &emptypb.Empty{}, pong)

	req.NoError(err)
	req.Equal("pong", pong.GetValue())
}
