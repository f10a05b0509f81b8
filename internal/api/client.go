package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mutelink/mutelink/internal/models"
)

// Client calls the control service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection to the daemon.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) snapshotCall(ctx context.Context, method string, in interface{}) (models.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return models.Snapshot{}, err
	}
	return SnapshotFromStruct(out)
}

// GetState returns the daemon's current snapshot.
func (c *Client) GetState(ctx context.Context) (models.Snapshot, error) {
	return c.snapshotCall(ctx, MethodGetState, &emptypb.Empty{})
}

// ToggleMute asks the daemon to flip the active call's mute state.
func (c *Client) ToggleMute(ctx context.Context) (models.Snapshot, error) {
	return c.snapshotCall(ctx, MethodToggleMute, &emptypb.Empty{})
}

// SetInteractionMode changes the interaction mode.
func (c *Client) SetInteractionMode(ctx context.Context, mode models.InteractionMode) (models.Snapshot, error) {
	return c.snapshotCall(ctx, MethodSetInteractionMode, wrapperspb.String(string(mode)))
}

// SetAutoFocus toggles focusing the call tab on press.
func (c *Client) SetAutoFocus(ctx context.Context, enabled bool) (models.Snapshot, error) {
	return c.snapshotCall(ctx, MethodSetAutoFocus, wrapperspb.Bool(enabled))
}

// FocusActiveTab brings the active call tab to the front.
func (c *Client) FocusActiveTab(ctx context.Context) error {
	return c.cc.Invoke(ctx, MethodFocusActiveTab, &emptypb.Empty{}, &emptypb.Empty{})
}

// SnapshotStream receives snapshots from Subscribe.
type SnapshotStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next snapshot.
func (s *SnapshotStream) Recv() (models.Snapshot, error) {
	m := new(structpb.Struct)
	if err := s.stream.RecvMsg(m); err != nil {
		return models.Snapshot{}, err
	}
	return SnapshotFromStruct(m)
}

// Subscribe opens a snapshot stream. Cancel ctx to end it.
func (c *Client) Subscribe(ctx context.Context) (*SnapshotStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodSubscribe)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SnapshotStream{stream: stream}, nil
}
