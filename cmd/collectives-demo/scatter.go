package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newScatterCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var datasize int
	var bufsize int

	cmd := &cobra.Command{
		Use:   "scatter",
		Short: "Partition the root's payload and distribute one share per party",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			sc, err := collective.NewScatter(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			if sess.group.IsRoot() {
				sendBuf := []byte(payload)
				recvBuf := make([]byte, len(sendBuf))
				n, err := sc.SendRecv(ctx, sendBuf, len(sendBuf), recvBuf, len(recvBuf), datasize)
				if err != nil {
					sess.logCancellation(ctx, "scatter")
					return err
				}
				sess.log.Info(ctx, "scatter kept own share", "bytes", n)
				fmt.Println(string(recvBuf[:n]))
				return nil
			}

			recvBuf := make([]byte, bufsize)
			n, err := sc.SendRecv(ctx, nil, 0, recvBuf, bufsize, datasize)
			if err != nil {
				sess.logCancellation(ctx, "scatter")
				return err
			}
			sess.log.Info(ctx, "scatter received share", "bytes", n)
			fmt.Println(string(recvBuf[:n]))
			return nil
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "root's full buffer to partition")
	cmd.Flags().IntVar(&datasize, "datasize", 1, "bytes per element")
	cmd.Flags().IntVar(&bufsize, "bufsize", 4096, "receive buffer capacity for non-root parties")
	return cmd
}
