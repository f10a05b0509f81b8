package server

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/daemon/coordinator"
	"github.com/mutelink/mutelink/internal/models"
)

// Controller is the part of the coordinator the control service drives.
type Controller interface {
	Snapshot() models.Snapshot
	ToggleMute()
	SetInteractionMode(mode models.InteractionMode) error
	SetAutoFocus(enabled bool) error
	RequestFocusActiveTab() error
	Subscribe(ctx context.Context) <-chan models.Snapshot
}

// controlService implements api.ControlServer.
type controlService struct {
	ctl Controller
}

func (s *controlService) state() (*structpb.Struct, error) {
	out, err := api.SnapshotToStruct(s.ctl.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *controlService) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.state()
}

func (s *controlService) ToggleMute(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.ctl.ToggleMute()
	return s.state()
}

func (s *controlService) SetInteractionMode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	mode, err := models.ParseInteractionMode(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.ctl.SetInteractionMode(mode); err != nil {
		log.Printf("[server] SetInteractionMode(%s): %v", mode, err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s.state()
}

func (s *controlService) SetAutoFocus(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if err := s.ctl.SetAutoFocus(req.GetValue()); err != nil {
		log.Printf("[server] SetAutoFocus(%v): %v", req.GetValue(), err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s.state()
}

func (s *controlService) FocusActiveTab(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	err := s.ctl.RequestFocusActiveTab()
	switch {
	case err == nil:
		return &emptypb.Empty{}, nil
	case errors.Is(err, coordinator.ErrNoActiveCall):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	default:
		return nil, status.Error(codes.Unavailable, err.Error())
	}
}

func (s *controlService) Subscribe(_ *emptypb.Empty, stream api.SubscribeStream) error {
	for snap := range s.ctl.Subscribe(stream.Context()) {
		msg, err := api.SnapshotToStruct(snap)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return stream.Context().Err()
}
