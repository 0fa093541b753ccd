package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// VotifierService delivers reward notifications to a game server's Votifier
// listener: a newline-delimited plaintext block, RSA-encrypted with the
// server's registered public key, written once over a fresh TCP connection.
// Delivery is best effort; the outcome is recorded on the vote but never
// gates it.
type VotifierService struct {
	appContext.DefaultService

	serviceName string
	timeout     time.Duration
}

// VotifierTarget is the per-server notification endpoint.
type VotifierTarget struct {
	Host      string
	Port      int
	PublicKey string // PEM or bare base64
}

// VotifierResult reports one delivery attempt. Success is true only when the
// remote side sent any bytes back before the deadline.
type VotifierResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

const VOTIFIER_SVC = "votifier_svc"

const defaultVotifierTimeout = 5 * time.Second

func (svc VotifierService) Id() string {
	return VOTIFIER_SVC
}

func (svc *VotifierService) Configure(ctx *appContext.Context) error {
	svc.serviceName = os.Getenv("VOTIFIER_SERVICE_NAME")
	if svc.serviceName == "" {
		svc.serviceName = "MineVote"
	}

	svc.timeout = defaultVotifierTimeout
	if raw := os.Getenv("VOTIFIER_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			svc.timeout = d
		}
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *VotifierService) Start() error {
	return nil
}

func (svc *VotifierService) ServiceName() string {
	return svc.serviceName
}

// Notify sends the vote notification. It always resolves to a result; every
// failure mode (bad key, refused connection, timeout) becomes
// success=false with the cause as the response.
func (svc *VotifierService) Notify(ctx context.Context, target VotifierTarget, username, voterIP string) VotifierResult {
	if target.Host == "" || target.Port <= 0 || target.PublicKey == "" {
		return VotifierResult{Success: false, Response: "Votifier not configured"}
	}

	payload := BuildVotePayload(svc.serviceName, username, voterIP, time.Now())

	encrypted, err := EncryptVotePayload(target.PublicKey, payload)
	if err != nil {
		log.WithError(err).WithField("host", target.Host).Warn("Failed to encrypt votifier payload")
		return VotifierResult{Success: false, Response: err.Error()}
	}

	deadline := time.Now().Add(svc.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	addr := net.JoinHostPort(target.Host, fmt.Sprintf("%d", target.Port))
	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return VotifierResult{Success: false, Response: err.Error()}
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return VotifierResult{Success: false, Response: err.Error()}
	}

	if _, err := conn.Write(encrypted); err != nil {
		return VotifierResult{Success: false, Response: err.Error()}
	}

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return VotifierResult{Success: false, Response: "Connection timeout"}
		}
		return VotifierResult{Success: false, Response: err.Error()}
	}

	return VotifierResult{Success: true, Response: strings.TrimSpace(string(buf[:n]))}
}

// BuildVotePayload formats the legacy plaintext vote block: VOTE, service
// name, player, voter IP and millisecond timestamp, each newline-terminated.
func BuildVotePayload(serviceName, username, voterIP string, at time.Time) []byte {
	return []byte(fmt.Sprintf("VOTE\n%s\n%s\n%s\n%d\n", serviceName, username, voterIP, at.UnixMilli()))
}

// EncryptVotePayload encrypts the payload with PKCS#1 v1.5 padding under the
// server's registered RSA public key.
func EncryptVotePayload(publicKey string, payload []byte) ([]byte, error) {
	pub, err := ParseVotifierPublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return rsa.EncryptPKCS1v15(rand.Reader, pub, payload)
}

// ParseVotifierPublicKey accepts the key formats server owners paste in: a
// PEM block (PKIX or PKCS#1) or the bare base64 body the Votifier plugin
// prints in its config.
func ParseVotifierPublicKey(raw string) (*rsa.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty public key")
	}

	var der []byte
	if block, _ := pem.Decode([]byte(raw)); block != nil {
		der = block.Bytes
	} else {
		compact := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, raw)

		decoded, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return nil, fmt.Errorf("public key is neither PEM nor base64: %w", err)
		}
		der = decoded
	}

	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA")
		}
		return rsaPub, nil
	}

	rsaPub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	return rsaPub, nil
}
