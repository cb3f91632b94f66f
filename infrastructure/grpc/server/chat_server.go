package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	pb "chat-relay/proto/chat"
	"chat-relay/runtime"
	"log/slog"
)

type ChatServer struct {
	pb.UnimplementedChatServer
	sessions *runtime.SessionManager
	log      *slog.Logger
}

func NewChatServer(log *slog.Logger, sessions *runtime.SessionManager) *ChatServer {
	return &ChatServer{sessions: sessions, log: log}
}

// Chat bridges one bidirectional stream with the bus.
// The handshake happens before anything is sent: a rejected caller gets a
// status and no message. Once active, the handler only drains the session
// buffer into the stream; the relays run in the session manager.
// It returns when the session is closed, the client then just sees its stream end.
func (s *ChatServer) Chat(stream pb.Chat_ChatServer) error {
	ctx := stream.Context()

	identity, err := IdentityFromContext(ctx)
	if err != nil {
		s.log.Warn("Rejected handshake", "error", err)
		return errors.MapToGRPCError(err)
	}

	session, err := s.sessions.Open(ctx, identity)
	if err != nil {
		s.log.Error("Failed to open session", "identity", identity, "error", err)
		return errors.MapToGRPCError(err)
	}

	go func() {
		_ = s.sessions.Run(ctx, session, streamSource{stream: stream})
	}()

	for {
		select {
		case msg := <-session.Outbound():
			if err := stream.Send(toChatMessage(msg)); err != nil {
				s.log.Warn("Failed to push message to stream",
					"identity", identity,
					"session_id", session.ID,
					"error", err)
				session.CloseOutbound()
				<-session.Done()
				return err
			}
		case <-session.Done():
			s.flush(stream, session)
			return nil
		}
	}
}

// flush hands over what the inbound relay buffered before the session closed.
func (s *ChatServer) flush(stream pb.Chat_ChatServer, session *runtime.Session) {
	for {
		select {
		case msg := <-session.Outbound():
			if err := stream.Send(toChatMessage(msg)); err != nil {
				return
			}
		default:
			return
		}
	}
}

type streamSource struct {
	stream pb.Chat_ChatServer
}

func (s streamSource) Recv() (domain.ChatMessage, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return fromChatMessage(msg), nil
}

func toChatMessage(msg domain.ChatMessage) *pb.ChatMessage {
	return &pb.ChatMessage{To: string(msg.To), Message: msg.Message}
}

func fromChatMessage(msg *pb.ChatMessage) domain.ChatMessage {
	return domain.ChatMessage{To: domain.Identity(msg.GetTo()), Message: msg.GetMessage()}
}
