package main

import (
	"fmt"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/spf13/cobra"
)

func newFanInCommand() *cobra.Command {
	f := &commonFlags{}
	var payload string
	var bufsize int

	cmd := &cobra.Command{
		Use:   "fanin",
		Short: "Root drains one message from every peer; peers each send one message then close",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := joinCluster(f)
			if err != nil {
				return err
			}
			defer sess.Close()

			fi, err := collective.NewFanIn(sess.participants(), sess.group.NParticipants(), f.rank, sess.group.IsRoot(), f.uniqtag)
			if err != nil {
				return err
			}

			ctx, cancel := runContext()
			defer cancel()

			if !sess.group.IsRoot() {
				if _, err := fi.Send(ctx, []byte(payload)); err != nil {
					sess.logCancellation(ctx, "fanin send")
					return err
				}
				sess.log.Info(ctx, "fanin sent message")
				return fi.Close(true, false)
			}

			buf := make([]byte, bufsize)
			for {
				size, err := fi.Probe(ctx, true)
				if err != nil {
					sess.logCancellation(ctx, "fanin probe")
					return err
				}
				if size == 0 {
					sess.log.Info(ctx, "fanin drained")
					return nil
				}
				n, err := fi.Receive(ctx, buf[:size])
				if err != nil {
					sess.logCancellation(ctx, "fanin receive")
					return err
				}
				sess.log.Info(ctx, "fanin received message", "bytes", n)
				fmt.Println(string(buf[:n]))
			}
		},
	}

	addCommonFlags(cmd, f)
	cmd.Flags().StringVar(&payload, "payload", "", "message sent by a non-root party")
	cmd.Flags().IntVar(&bufsize, "bufsize", 4096, "root's per-message receive buffer capacity")
	return cmd
}
