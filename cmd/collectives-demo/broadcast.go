package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newBroadcastCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var bufsize int

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Broadcast a payload from the root to every other party",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			bc, err := collective.NewBroadcast(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			if sess.group.IsRoot() {
				sendBuf := []byte(payload)
				n, err := bc.SendRecv(ctx, sendBuf, len(sendBuf), nil, 0, 1)
				if err != nil {
					sess.logCancellation(ctx, "broadcast")
					return err
				}
				sess.log.Info(ctx, "broadcast sent", "bytes", n)
				return nil
			}

			recvBuf := make([]byte, bufsize)
			n, err := bc.SendRecv(ctx, nil, 0, recvBuf, bufsize, 1)
			if err != nil {
				sess.logCancellation(ctx, "broadcast")
				return err
			}
			sess.log.Info(ctx, "broadcast received", "bytes", n)
			fmt.Println(string(recvBuf[:n]))
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "root's payload to broadcast")
	cmd.Flags().IntVar(&bufsize, "bufsize", 4096, "receive buffer capacity for non-root parties")
	return cmd
}
