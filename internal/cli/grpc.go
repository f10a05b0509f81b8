package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/config"
)

const rpcTimeout = 5 * time.Second

var errDaemonNotRunning = errors.New("daemon not running. Start it with 'mutelink daemon start'")

// connectDaemon establishes a gRPC connection to the running daemon.
func connectDaemon() (*api.Client, func(), error) {
	info, err := config.LoadDaemonInfo()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load daemon info: %w", err)
	}
	if info == nil {
		return nil, nil, errDaemonNotRunning
	}

	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return api.NewClient(conn), func() { _ = conn.Close() }, nil
}

// withClient runs fn against the daemon with a bounded deadline.
func withClient(fn func(ctx context.Context, c *api.Client) error) error {
	client, closeConn, err := connectDaemon()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	return rpcError(fn(ctx, client))
}

// rpcError strips the gRPC envelope from daemon errors.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return errDaemonNotRunning
	case codes.DeadlineExceeded:
		return errors.New("daemon did not answer in time")
	}
	return errors.New(st.Message())
}
