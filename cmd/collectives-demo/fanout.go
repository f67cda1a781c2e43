package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newFanOutCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var messages int
	var bufsize int

	cmd := &cobra.Command{
		Use:   "fanout",
		Short: "Root round-robins messages out to every peer; peers drain from root until close",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			fo, err := collective.NewFanOut(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			if sess.group.IsRoot() {
				for i := 0; i < messages; i++ {
					if _, err := fo.Send(ctx, []byte(payload)); err != nil {
						sess.logCancellation(ctx, "fanout send")
						return err
					}
				}
				sess.log.Info(ctx, "fanout sent messages", "count", messages)
				return fo.Close(true, false)
			}

			buf := make([]byte, bufsize)
			for {
				size, err := fo.Probe(ctx, true)
				if err != nil {
					sess.logCancellation(ctx, "fanout probe")
					return err
				}
				if size == 0 {
					sess.log.Info(ctx, "fanout drained")
					return nil
				}
				n, err := fo.Receive(ctx, buf[:size])
				if err != nil {
					sess.logCancellation(ctx, "fanout receive")
					return err
				}
				sess.log.Info(ctx, "fanout received message", "bytes", n)
				fmt.Println(string(buf[:n]))
			}
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "message the root round-robins to its peers")
	cmd.Flags().IntVar(&messages, "messages", 1, "number of messages the root sends")
	cmd.Flags().IntVar(&bufsize, "bufsize", 4096, "per-message receive buffer capacity for peers")
	return cmd
}
