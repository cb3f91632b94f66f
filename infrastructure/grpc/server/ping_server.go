package server

import (
	pb "chat-relay/proto/chat"
	"context"
	"log/slog"

	"google.golang.org/grpc/peer"
)

type PingPongServer struct {
	pb.UnimplementedPingPongServer
	log *slog.Logger
}

func NewPingPongServer(log *slog.Logger) *PingPongServer {
	return &PingPongServer{log: log}
}

func (s *PingPongServer) SendPing(ctx context.Context, _ *pb.Ping) (*pb.Pong, error) {
	if p, ok := peer.FromContext(ctx); ok {
		s.log.Debug("Received a ping", "remote_addr", p.Addr.String())
	}
	return &pb.Pong{Message: "pong"}, nil
}
