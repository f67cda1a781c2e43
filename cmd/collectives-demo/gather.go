package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newGatherCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var count int
	var datasize int

	cmd := &cobra.Command{
		Use:   "gather",
		Short: "Collect each party's share into the root's buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			g, err := collective.NewGather(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			sendBuf := []byte(payload)
			recvSize := count * datasize

			if sess.group.IsRoot() {
				recvBuf := make([]byte, recvSize)
				n, err := g.SendRecv(ctx, sendBuf, len(sendBuf), recvBuf, recvSize, datasize)
				if err != nil {
					sess.logCancellation(ctx, "gather")
					return err
				}
				sess.log.Info(ctx, "gather assembled", "own_bytes", n, "total_bytes", recvSize)
				fmt.Println(string(recvBuf))
				return nil
			}

			n, err := g.SendRecv(ctx, sendBuf, len(sendBuf), nil, recvSize, datasize)
			if err != nil {
				sess.logCancellation(ctx, "gather")
				return err
			}
			sess.log.Info(ctx, "gather sent share", "bytes", n)
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "this party's local contribution")
	cmd.Flags().IntVar(&count, "count", 0, "total element count across every party (must match on all invocations)")
	cmd.Flags().IntVar(&datasize, "datasize", 1, "bytes per element")
	return cmd
}
