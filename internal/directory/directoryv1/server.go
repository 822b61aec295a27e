package directoryv1

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/multiplay/internal/directory"
)

// Server implements DirectoryServer over a Registry.
type Server struct {
	registry *directory.Registry
	logger   *zap.Logger
}

// NewServer creates a Server.
//
// Precondition: registry and logger must be non-nil.
func NewServer(registry *directory.Registry, logger *zap.Logger) *Server {
	return &Server{registry: registry, logger: logger}
}

// CreateSession lists a new session and returns it with its host token.
func (s *Server) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	a, err := DecodeAdvert(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	l, token, err := s.registry.Create(ctx, a)
	if err != nil {
		s.logger.Warn("create session failed", zap.String("owner", a.OwnerName), zap.Error(err))
		return nil, ToStatus(err)
	}
	resp, err := encodeCreated(l, token)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Debug("create session", zap.String("session_id", l.ID), zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// FindSessions returns the listings matching the query.
func (s *Server) FindSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ls, err := s.registry.Find(ctx, DecodeQuery(req))
	if err != nil {
		s.logger.Warn("find sessions failed", zap.Error(err))
		return nil, ToStatus(err)
	}
	resp, err := EncodeListings(ls)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// JoinSession claims a public slot.
func (s *Server) JoinSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, fieldSessionID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	l, err := s.registry.Join(ctx, id, stringField(req, fieldPlayerName))
	if err != nil {
		s.logger.Info("join session refused", zap.String("session_id", id), zap.Error(err))
		return nil, ToStatus(err)
	}
	resp, err := structpb.NewStruct(map[string]any{fieldListing: listingMap(l)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// LeaveSession releases a public slot.
func (s *Server) LeaveSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, fieldSessionID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := s.registry.Leave(ctx, id); err != nil {
		return nil, ToStatus(err)
	}
	return &structpb.Struct{}, nil
}

// DestroySession delists a session.
func (s *Server) DestroySession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, fieldSessionID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := s.registry.Destroy(ctx, id, stringField(req, fieldHostToken)); err != nil {
		s.logger.Warn("destroy session refused", zap.String("session_id", id), zap.Error(err))
		return nil, ToStatus(err)
	}
	return &structpb.Struct{}, nil
}
