package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mtcl-go/collectives/internal/config"
	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/mtcl-go/collectives/pkg/collective/logging"
	"github.com/mtcl-go/collectives/pkg/tcphandle"
	"github.com/spf13/cobra"
)

// commonFlags are the flags every collective subcommand shares: which
// cluster to join, which rank this invocation is, and which rank
// coordinates the pattern.
type commonFlags struct {
	configPath string
	rank       int
	root       int
	uniqtag    int
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to the cluster config JSON")
	cmd.Flags().IntVar(&f.rank, "rank", 0, "this invocation's party index")
	cmd.Flags().IntVar(&f.root, "root", 0, "the coordinating party index")
	cmd.Flags().IntVar(&f.uniqtag, "uniqtag", 0, "run identifier shared by every party")
	_ = cmd.MarkFlagRequired("config")
}

// session bundles a dialed mesh, this run's Group, and a Close that tears
// both down; callers defer session.Close after a successful joinCluster.
type session struct {
	group    *config.Group
	handles  map[int]*tcphandle.Handle
	listener net.Listener
	log      logging.Logger
}

func joinCluster(f *commonFlags) (*session, error) {
	group, err := config.LoadConfig(f.configPath, f.rank, f.root, f.uniqtag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cluster := group.Cluster

	rootCAs, err := config.LoadCertPool(cluster.CACert)
	if err != nil {
		return nil, fmt.Errorf("load CA pool: %w", err)
	}
	party := cluster.Parties[f.rank]
	cert, err := config.LoadKeyPair(party.Cert, party.Key)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}

	names := make([]string, len(cluster.Parties))
	addrs := make([]string, len(cluster.Parties))
	for i, p := range cluster.Parties {
		names[i] = p.Name
		addrs[i] = p.Address
	}

	handles, ln, err := tcphandle.Dial(tcphandle.Config{
		Self:        f.rank,
		Names:       names,
		Addresses:   addrs,
		Certificate: cert,
		RootCAs:     rootCAs,
	})
	if err != nil {
		return nil, fmt.Errorf("dial mesh: %w", err)
	}

	selfAddr := logging.PeerAddr("self_address", party.Address)
	return &session{
		group:    group,
		handles:  handles,
		listener: ln,
		log:      logging.New(nil).With("rank", f.rank, "uniqtag", f.uniqtag, selfAddr),
	}, nil
}

// logCancellation logs ctx's cancellation (if any) through the session's
// logger and reports whether it fired, so command RunE bodies can fold it
// into their existing `if err != nil { return err }` checks.
func (s *session) logCancellation(ctx context.Context, op string) bool {
	return logging.Cancellation(ctx, s.log, op)
}

// participants builds the Handle view pkg/collective's root/non-root
// convention expects: root gets every peer's Handle in ascending rank
// order, a non-root gets exactly one Handle, to root.
func (s *session) participants() []collective.Handle {
	if s.group.IsRoot() {
		out := make([]collective.Handle, 0, s.group.NParticipants()-1)
		for rank := 0; rank < s.group.NParticipants(); rank++ {
			if rank == s.group.Root {
				continue
			}
			out = append(out, s.handles[rank])
		}
		return out
	}
	return []collective.Handle{s.handles[s.group.Root]}
}

func (s *session) Close() error {
	var err error
	for _, h := range s.handles {
		if cerr := h.Close(true, true); cerr != nil && err == nil {
			err = cerr
		}
	}
	if s.listener != nil {
		if cerr := s.listener.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func runContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
