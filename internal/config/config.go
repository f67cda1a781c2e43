// Package config loads and validates the JSON cluster topology
// cmd/collectives-demo needs to build a pkg/collective strategy and the
// pkg/tcphandle connections backing it: party addresses, mTLS material, and
// which party (if any) is root for a given run.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// PartyConfig describes a single party in the cluster.
type PartyConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Cert    string `json:"cert"`
	Key     string `json:"key"`
}

// ClusterConfig describes the full cluster topology and TLS certificates.
type ClusterConfig struct {
	CACert  string        `json:"ca_cert"`
	Parties []PartyConfig `json:"parties"`
}

// Group augments a ClusterConfig with the per-invocation fields
// pkg/collective's strategy constructors need: which party index is root
// (collectives without a distinguished root, like AllToAll, still name the
// routing coordinator here) and the uniqtag identifying this run.
type Group struct {
	Cluster *ClusterConfig
	Root    int
	Rank    int
	Uniqtag int
}

// NParticipants returns the cluster's party count.
func (g *Group) NParticipants() int { return len(g.Cluster.Parties) }

// IsRoot reports whether this invocation's rank is the group's root.
func (g *Group) IsRoot() bool { return g.Rank == g.Root }

// LoadConfig reads and parses a cluster configuration JSON file, then
// validates it against the rank/root/uniqtag this invocation wants to run
// as, returning a Group ready for cmd/collectives-demo to build a strategy
// from.
func LoadConfig(path string, rank, root, uniqtag int) (*Group, error) {
	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg ClusterConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return ValidateConfig(&cfg, rank, root, uniqtag)
}

// LoadCertPool loads a PEM-encoded CA certificate pool from the given path.
func LoadCertPool(path string) (*x509.CertPool, error) {
	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	pemData, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}

// LoadKeyPair loads a TLS certificate and private key from the given paths.
func LoadKeyPair(certPath, keyPath string) (tls.Certificate, error) {
	certAbs, err := SecurePath(certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("secure cert path: %w", err)
	}
	keyAbs, err := SecurePath(keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("secure key path: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(certAbs, keyAbs)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
	}
	return cert, nil
}

// SecurePath validates that a file path doesn't escape the working
// directory, preventing path traversal when loading user-specified config
// files.
func SecurePath(path string) (string, error) {
	clean := filepath.Clean(path)
	absPath, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes working directory", path)
	}
	return absPath, nil
}

// ValidateConfig checks a ClusterConfig's structure, rejects paths that
// would escape the working directory, and confirms that rank and root both
// name a real party in that same cluster before handing back the Group this
// invocation should run as. It does not open any file beyond the path
// check.
//
// rank and root are validated by recording, in the per-party loop below,
// whether each index was seen; this accepts exactly the indices in
// [0, len(cfg.Parties)).
func ValidateConfig(cfg *ClusterConfig, rank, root, uniqtag int) (*Group, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if cfg.CACert == "" {
		return nil, errors.New("ca_cert is required")
	}
	if _, err := SecurePath(cfg.CACert); err != nil {
		return nil, fmt.Errorf("ca_cert: %w", err)
	}
	if len(cfg.Parties) < 2 {
		return nil, errors.New("cluster must contain at least two parties")
	}
	if uniqtag < 0 {
		return nil, fmt.Errorf("uniqtag must be non-negative, got %d", uniqtag)
	}

	seenNames := make(map[string]struct{}, len(cfg.Parties))
	seenAddresses := make(map[string]struct{}, len(cfg.Parties))
	sawRank, sawRoot := false, false
	for i, p := range cfg.Parties {
		if p.Name == "" {
			return nil, fmt.Errorf("party[%d]: empty name", i)
		}
		if _, ok := seenNames[p.Name]; ok {
			return nil, fmt.Errorf("duplicate party name %q", p.Name)
		}
		seenNames[p.Name] = struct{}{}

		if p.Address == "" {
			return nil, fmt.Errorf("party[%s]: empty address", p.Name)
		}
		if _, _, err := net.SplitHostPort(p.Address); err != nil {
			return nil, fmt.Errorf("party[%s]: invalid address %q: %v", p.Name, p.Address, err)
		}
		if _, ok := seenAddresses[p.Address]; ok {
			return nil, fmt.Errorf("duplicate address %q", p.Address)
		}
		seenAddresses[p.Address] = struct{}{}

		if p.Cert == "" || p.Key == "" {
			return nil, fmt.Errorf("party[%s]: cert and key paths are required", p.Name)
		}
		if _, err := SecurePath(p.Cert); err != nil {
			return nil, fmt.Errorf("party[%s] cert: %w", p.Name, err)
		}
		if _, err := SecurePath(p.Key); err != nil {
			return nil, fmt.Errorf("party[%s] key: %w", p.Name, err)
		}

		sawRank = sawRank || i == rank
		sawRoot = sawRoot || i == root
	}

	if rank < 0 || !sawRank {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, len(cfg.Parties))
	}
	if root < 0 || !sawRoot {
		return nil, fmt.Errorf("root %d out of range [0,%d)", root, len(cfg.Parties))
	}

	return &Group{Cluster: cfg, Root: root, Rank: rank, Uniqtag: uniqtag}, nil
}
