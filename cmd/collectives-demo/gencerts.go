package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtcl-go/collectives/internal/config"
	"github.com/mtcl-go/collectives/pkg/tcphandle"
	"github.com/spf13/cobra"
)

func newGenCertsCommand() *cobra.Command {
	var names string
	var addrs string
	var out string

	cmd := &cobra.Command{
		Use:   "gen-certs",
		Short: "Generate a demo CA, per-party certificates, and a cluster config JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			nameList := strings.Split(names, ",")
			if len(nameList) < 2 {
				return fmt.Errorf("gen-certs: provide at least two comma-separated --names")
			}

			var addrList []string
			if addrs == "" {
				addrList = make([]string, len(nameList))
				for i := range nameList {
					addrList[i] = fmt.Sprintf("127.0.0.1:%d", 7000+i)
				}
			} else {
				addrList = strings.Split(addrs, ",")
				if len(addrList) != len(nameList) {
					return fmt.Errorf("gen-certs: --addresses must have the same length as --names")
				}
			}

			if err := tcphandle.GenerateCertificates(nameList, addrList, out); err != nil {
				return err
			}

			cluster := config.ClusterConfig{
				CACert:  filepath.Join(out, "ca.crt"),
				Parties: make([]config.PartyConfig, len(nameList)),
			}
			for i, name := range nameList {
				cluster.Parties[i] = config.PartyConfig{
					Name:    name,
					Address: addrList[i],
					Cert:    filepath.Join(out, name+".crt"),
					Key:     filepath.Join(out, name+".key"),
				}
			}

			data, err := json.MarshalIndent(cluster, "", "  ")
			if err != nil {
				return err
			}
			clusterPath := filepath.Join(out, "cluster.json")
			if err := os.WriteFile(clusterPath, data, 0o600); err != nil {
				return fmt.Errorf("write cluster config: %w", err)
			}

			fmt.Println(clusterPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&names, "names", "", "comma-separated party names")
	cmd.Flags().StringVar(&addrs, "addresses", "", "comma-separated host:port per party (default loopback, auto-assigned)")
	cmd.Flags().StringVar(&out, "out", "", "output directory for certs and cluster.json")
	_ = cmd.MarkFlagRequired("names")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
