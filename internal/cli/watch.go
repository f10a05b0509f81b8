package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mutelink/mutelink/internal/tui"
)

var watchPlain bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow state changes live",
	Long: `Follow state changes live.

On a terminal this opens an interactive view; when output is piped, one line is
printed per state change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per change even on a terminal")
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, closeConn, err := connectDaemon()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !watchPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.Run(ctx, client)
	}

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return rpcError(err)
	}
	for {
		snap, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return rpcError(err)
		}
		fmt.Println(snapshotLine(snap))
	}
}
