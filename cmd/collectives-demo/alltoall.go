package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newAllToAllCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var datasize int

	cmd := &cobra.Command{
		Use:   "alltoall",
		Short: "Exchange a personalized chunk with every other party",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			at, err := collective.NewAllToAll(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			sendBuf := []byte(payload)
			n := sess.group.NParticipants()
			// Every rank's incoming total is at most its send chunk times n;
			// overshoot by n elements to absorb remainder rounding rather
			// than compute the exact per-rank chunk here.
			recvBuf := make([]byte, len(sendBuf)+n*datasize)

			written, err := at.SendRecv(ctx, sendBuf, len(sendBuf), recvBuf, len(recvBuf), datasize)
			if err != nil {
				sess.logCancellation(ctx, "alltoall")
				return err
			}
			sess.log.Info(ctx, "alltoall complete", "received_bytes", written)
			fmt.Println(string(recvBuf[:written]))
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "this party's full send buffer, partitioned into n chunks")
	cmd.Flags().IntVar(&datasize, "datasize", 1, "bytes per element")
	return cmd
}
