package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
)

// MCPingService probes game servers with the Minecraft server-list-ping
// exchange: a handshake plus status request over TCP, answered with a JSON
// status document. Used to refresh player counts and online state on
// listings.
type MCPingService struct {
	appContext.DefaultService

	timeout time.Duration
}

// MCStatus is the subset of the status response the listing cares about.
type MCStatus struct {
	Version string
	Online  int
	Max     int
	MOTD    string
	Latency time.Duration
}

const MCPING_SVC = "mcping_svc"

const (
	defaultPingTimeout = 5 * time.Second
	handshakeProtocol  = 47 // lowest widely-answered protocol number
	statusNextState    = 1
)

func (svc MCPingService) Id() string {
	return MCPING_SVC
}

func (svc *MCPingService) Configure(ctx *appContext.Context) error {
	svc.timeout = defaultPingTimeout
	if raw := os.Getenv("MCPING_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			svc.timeout = d
		}
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *MCPingService) Start() error {
	return nil
}

// Ping performs one status exchange. Any transport or protocol failure is
// returned as an error; callers record it as an offline probe.
func (svc *MCPingService) Ping(ctx context.Context, host string, port int) (*MCStatus, error) {
	deadline := time.Now().Add(svc.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	started := time.Now()

	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := writePacket(conn, handshakePacket(host, port)); err != nil {
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	// Empty status-request packet, id 0x00.
	if err := writePacket(conn, []byte{0x00}); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}

	reader := bufio.NewReader(conn)
	payload, err := readPacket(reader)
	if err != nil {
		return nil, fmt.Errorf("status response failed: %w", err)
	}
	latency := time.Since(started)

	if len(payload) == 0 || payload[0] != 0x00 {
		return nil, fmt.Errorf("unexpected status packet id")
	}

	body, n, err := readVarInt(payload[1:])
	if err != nil {
		return nil, fmt.Errorf("malformed status length: %w", err)
	}
	rest := payload[1+n:]
	if int(body) > len(rest) {
		return nil, fmt.Errorf("truncated status payload")
	}

	status, err := decodeStatus(rest[:body])
	if err != nil {
		return nil, err
	}
	status.Latency = latency
	return status, nil
}

func handshakePacket(host string, port int) []byte {
	var buf []byte
	buf = append(buf, 0x00)
	buf = appendVarInt(buf, handshakeProtocol)
	buf = appendVarInt(buf, int32(len(host)))
	buf = append(buf, host...)
	buf = append(buf, byte(port>>8), byte(port))
	buf = appendVarInt(buf, statusNextState)
	return buf
}

func writePacket(w io.Writer, payload []byte) error {
	frame := appendVarInt(nil, int32(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

func readPacket(r *bufio.Reader) ([]byte, error) {
	length, err := readVarIntFrom(r)
	if err != nil {
		return nil, err
	}
	if length <= 0 || length > 1<<21 {
		return nil, fmt.Errorf("invalid packet length %d", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func appendVarInt(buf []byte, v int32) []byte {
	u := uint32(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if u == 0 {
			return buf
		}
	}
}

func readVarInt(data []byte) (int32, int, error) {
	var value uint32
	for i := 0; i < 5 && i < len(data); i++ {
		value |= uint32(data[i]&0x7F) << (7 * i)
		if data[i]&0x80 == 0 {
			return int32(value), i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("varint too long or truncated")
}

func readVarIntFrom(r *bufio.Reader) (int32, error) {
	var value uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(value), nil
		}
	}
	return 0, fmt.Errorf("varint too long")
}

func decodeStatus(data []byte) (*MCStatus, error) {
	var doc struct {
		Version struct {
			Name string `json:"name"`
		} `json:"version"`
		Players struct {
			Online int `json:"online"`
			Max    int `json:"max"`
		} `json:"players"`
		Description json.RawMessage `json:"description"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid status JSON: %w", err)
	}

	return &MCStatus{
		Version: doc.Version.Name,
		Online:  doc.Players.Online,
		Max:     doc.Players.Max,
		MOTD:    decodeMOTD(doc.Description),
	}, nil
}

// decodeMOTD handles the two shapes servers send: a plain string or a chat
// component object with a text field.
func decodeMOTD(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var component struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &component); err == nil {
		return component.Text
	}
	return ""
}
