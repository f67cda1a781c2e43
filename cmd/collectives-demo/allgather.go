package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newAllGatherCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var count int
	var datasize int

	cmd := &cobra.Command{
		Use:   "allgather",
		Short: "Gather every party's share, then reflect the assembled buffer back to all parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			ag, err := collective.NewAllGather(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			sendBuf := []byte(payload)
			recvSize := count * datasize
			recvBuf := make([]byte, recvSize)

			n, err := ag.SendRecv(ctx, sendBuf, len(sendBuf), recvBuf, recvSize, datasize)
			if err != nil {
				sess.logCancellation(ctx, "allgather")
				return err
			}
			sess.log.Info(ctx, "allgather complete", "own_bytes", n, "total_bytes", recvSize)
			fmt.Println(string(recvBuf))
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "this party's local contribution")
	cmd.Flags().IntVar(&count, "count", 0, "total element count across every party (must match on all invocations)")
	cmd.Flags().IntVar(&datasize, "datasize", 1, "bytes per element")
	return cmd
}
