package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeClusterConfig(t *testing.T, dir string) string {
	t.Helper()

	// SecurePath only accepts paths under the working directory, so run
	// from inside dir for the rest of the test.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	certPath := filepath.Join(dir, "party.crt")
	keyPath := filepath.Join(dir, "party.key")
	caPath := filepath.Join(dir, "ca.crt")
	require.NoError(t, os.WriteFile(certPath, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0o600))
	require.NoError(t, os.WriteFile(caPath, []byte("ca"), 0o600))

	cfg := `{
		"ca_cert": "` + caPath + `",
		"parties": [
			{"name": "p0", "address": "127.0.0.1:9000", "cert": "` + certPath + `", "key": "` + keyPath + `"},
			{"name": "p1", "address": "127.0.0.1:9001", "cert": "` + certPath + `", "key": "` + keyPath + `"}
		]
	}`
	path := filepath.Join(dir, "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestLoadConfigValid(t *testing.T) {
	dir := t.TempDir()
	path := writeClusterConfig(t, dir)

	group, err := LoadConfig(path, 1, 0, 42)
	require.NoError(t, err)
	require.Len(t, group.Cluster.Parties, 2)
	require.Equal(t, 2, group.NParticipants())
	require.False(t, group.IsRoot())
}

func TestLoadConfigRejectsOutOfRangeRank(t *testing.T) {
	dir := t.TempDir()
	path := writeClusterConfig(t, dir)

	_, err := LoadConfig(path, 5, 0, 42)
	require.ErrorContains(t, err, "rank 5 out of range")
}

func TestValidateConfigRejectsTooFewParties(t *testing.T) {
	_, err := ValidateConfig(&ClusterConfig{
		CACert:  ".",
		Parties: []PartyConfig{{Name: "p0", Address: "127.0.0.1:9000", Cert: ".", Key: "."}},
	}, 0, 0, 0)
	require.Error(t, err)
}

func TestValidateConfigRejectsDuplicateNames(t *testing.T) {
	cfg := &ClusterConfig{
		CACert: ".",
		Parties: []PartyConfig{
			{Name: "p0", Address: "127.0.0.1:9000", Cert: ".", Key: "."},
			{Name: "p0", Address: "127.0.0.1:9001", Cert: ".", Key: "."},
		},
	}
	_, err := ValidateConfig(cfg, 0, 1, 0)
	require.ErrorContains(t, err, "duplicate party name")
}

func TestValidateConfigRejectsInvalidAddress(t *testing.T) {
	cfg := &ClusterConfig{
		CACert: ".",
		Parties: []PartyConfig{
			{Name: "p0", Address: "not-a-host-port", Cert: ".", Key: "."},
			{Name: "p1", Address: "127.0.0.1:9001", Cert: ".", Key: "."},
		},
	}
	_, err := ValidateConfig(cfg, 0, 1, 0)
	require.Error(t, err)
}

func TestValidateConfigRejectsNegativeUniqtag(t *testing.T) {
	cfg := &ClusterConfig{
		CACert: ".",
		Parties: []PartyConfig{
			{Name: "p0", Address: "127.0.0.1:9000", Cert: ".", Key: "."},
			{Name: "p1", Address: "127.0.0.1:9001", Cert: ".", Key: "."},
		},
	}
	_, err := ValidateConfig(cfg, 0, 1, -1)
	require.ErrorContains(t, err, "uniqtag")
}

func TestValidateConfigRejectsRootOutOfRange(t *testing.T) {
	cfg := &ClusterConfig{
		CACert: ".",
		Parties: []PartyConfig{
			{Name: "p0", Address: "127.0.0.1:9000", Cert: ".", Key: "."},
			{Name: "p1", Address: "127.0.0.1:9001", Cert: ".", Key: "."},
		},
	}
	_, err := ValidateConfig(cfg, 0, 7, 0)
	require.ErrorContains(t, err, "root 7 out of range")
}

func TestSecurePathRejectsEscape(t *testing.T) {
	_, err := SecurePath("../../../../etc/passwd")
	require.Error(t, err)
}
