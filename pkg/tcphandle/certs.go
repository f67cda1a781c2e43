package tcphandle

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mtcl-go/collectives/internal/config"
)

// GenerateCertificates writes a demo CA and one certificate per party to
// outputDir, for exercising a local Dial mesh without an external PKI.
// names and addrs must be parallel slices, the same shape as the
// name/address columns of a config.ClusterConfig's Parties. Certificates
// support both server and client authentication (mTLS requires each party
// to present a client cert during the other party's Accept); the SAN list
// for each party adds the host of its actual dial address to fixed
// name/localhost entries, so certificates generated for a multi-host
// cluster.json remain valid when parties are not colocated.
//
// Serial numbers are derived from a fingerprint of the whole party list
// (sha256 of every name/address pair, in order) rather than small sequential
// integers: this binds every certificate issued for one gen-certs run to
// that specific cluster shape, so certs from two different --names/--addresses
// invocations never collide on serial number even if regenerated for the
// same output directory.
func GenerateCertificates(names, addrs []string, outputDir string) error {
	if len(names) < 2 {
		return fmt.Errorf("tcphandle: provide at least two party names (got %v)", names)
	}
	if len(names) != len(addrs) {
		return fmt.Errorf("tcphandle: names and addrs must have the same length (%d vs %d)", len(names), len(addrs))
	}

	absDir, err := config.SecurePath(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outputDir = absDir

	fingerprint := clusterFingerprint(names, addrs)

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate CA key: %w", err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          serialFor(fingerprint, 0),
		Subject:               pkix.Name{CommonName: fmt.Sprintf("collectives-demo-ca-%x", fingerprint[:4])},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("create CA certificate: %w", err)
	}
	if err := writeCert(filepath.Join(outputDir, "ca.crt"), caDER); err != nil {
		return err
	}
	if err := writeKey(filepath.Join(outputDir, "ca.key"), caKey); err != nil {
		return err
	}

	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return fmt.Errorf("parse CA certificate: %w", err)
	}

	for i, name := range names {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return fmt.Errorf("generate key for %s: %w", name, err)
		}
		dnsNames, ips := sanFor(name, addrs[i])
		tmpl := &x509.Certificate{
			SerialNumber: serialFor(fingerprint, i+1),
			Subject:      pkix.Name{CommonName: name},
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     time.Now().Add(365 * 24 * time.Hour),
			KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
			ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
			DNSNames:     dnsNames,
			IPAddresses:  ips,
		}
		der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
		if err != nil {
			return fmt.Errorf("create cert for %s: %w", name, err)
		}
		if err := writeCert(filepath.Join(outputDir, fmt.Sprintf("%s.crt", name)), der); err != nil {
			return err
		}
		if err := writeKey(filepath.Join(outputDir, fmt.Sprintf("%s.key", name)), key); err != nil {
			return err
		}
	}

	return nil
}

// clusterFingerprint hashes every name/address pair, in order, so the
// resulting digest changes if either the party list or the addressing plan
// changes between gen-certs invocations.
func clusterFingerprint(names, addrs []string) [sha256.Size]byte {
	h := sha256.New()
	for i, name := range names {
		_, _ = h.Write([]byte(name))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(addrs[i]))
		_, _ = h.Write([]byte{0})
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// serialFor derives a certificate serial from the cluster fingerprint and a
// per-certificate index (0 for the CA, i+1 for party i), so serials are
// unique within a cluster and reproducible only for that exact party list.
func serialFor(fingerprint [sha256.Size]byte, index int) *big.Int {
	high := binary.BigEndian.Uint64(fingerprint[:8])
	serial := new(big.Int).SetUint64(high)
	serial.Lsh(serial, 32)
	serial.Or(serial, big.NewInt(int64(index)+1))
	return serial
}

// sanFor builds the DNS/IP subject-alternative-names for a party
// certificate: the name, localhost and 127.0.0.1 are always included so
// certs still validate for loopback testing, plus the host of its dial
// address (the whole address when it has no port).
func sanFor(name, address string) ([]string, []net.IP) {
	dnsNames := []string{name, "localhost"}
	ips := []net.IP{net.ParseIP("127.0.0.1")}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if host == "" {
		return dnsNames, ips
	}
	if ip := net.ParseIP(host); ip != nil {
		ips = append(ips, ip)
	} else {
		dnsNames = append(dnsNames, host)
	}
	return dnsNames, ips
}

func writeCert(path string, der []byte) error {
	cleanPath, err := config.SecurePath(path)
	if err != nil {
		return fmt.Errorf("sanitize cert path %s: %w", path, err)
	}
	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- cleanPath validated by config.SecurePath
	if err != nil {
		return fmt.Errorf("open cert %s: %w", cleanPath, err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return fmt.Errorf("encode cert %s: %w", cleanPath, err)
	}
	return nil
}

func writeKey(path string, key *rsa.PrivateKey) error {
	cleanPath, err := config.SecurePath(path)
	if err != nil {
		return fmt.Errorf("sanitize key path %s: %w", path, err)
	}
	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- cleanPath validated by config.SecurePath
	if err != nil {
		return fmt.Errorf("open key %s: %w", cleanPath, err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}); err != nil {
		return fmt.Errorf("encode key %s: %w", cleanPath, err)
	}
	return nil
}
