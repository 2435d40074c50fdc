package testutil

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/udisondev/realmd/internal/constants"
)

// AuthClient упрощает написание integration тестов для auth сервера.
// Управляет подключением и чтением/записью сообщений протокола.
type AuthClient struct {
	t    testing.TB
	conn net.Conn

	// Timeout для операций
	timeout time.Duration
}

// ChallengeReply — разобранный успешный ответ на LOGON_CHALLENGE.
type ChallengeReply struct {
	Status        uint8
	B, G, N, Salt []byte
	SecurityFlags uint8
}

// NewAuthClient подключается к серверу по addr.
// Использует t.Cleanup() для автоматического закрытия соединения.
func NewAuthClient(t testing.TB, addr string) (*AuthClient, error) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial auth server: %w", err)
	}

	client := &AuthClient{
		t:       t,
		conn:    conn,
		timeout: 5 * time.Second,
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, nil
}

// Close закрывает соединение.
func (c *AuthClient) Close() error {
	return c.conn.Close()
}

// Send пишет сырые байты.
func (c *AuthClient) Send(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadN читает ровно n байт.
func (c *AuthClient) ReadN(n int) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return nil, fmt.Errorf("read %d bytes: %w", n, err)
	}
	return buf, nil
}

// ExpectClosed ждёт, пока сервер закроет соединение.
func (c *AuthClient) ExpectClosed() error {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	var b [1]byte
	n, err := c.conn.Read(b[:])
	if err == nil {
		return fmt.Errorf("expected close, got %d bytes (0x%02X)", n, b[0])
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return fmt.Errorf("expected close, connection still open")
	}
	return nil
}

// ReadChallengeReply читает ответ на LOGON_CHALLENGE.
// При неуспешном статусе возвращаются только первые три байта.
func (c *AuthClient) ReadChallengeReply() (*ChallengeReply, error) {
	head, err := c.ReadN(3)
	if err != nil {
		return nil, err
	}
	if head[0] != constants.CmdAuthLogonChallenge {
		return nil, fmt.Errorf("expected challenge reply, got 0x%02X", head[0])
	}

	reply := &ChallengeReply{Status: head[2]}
	if reply.Status != constants.LoginSuccess {
		return reply, nil
	}

	// B(32) g_len(1) g(1) N_len(1) N(32) s(32) rand(16) flags(1)
	body, err := c.ReadN(32 + 1 + 1 + 1 + 32 + 32 + 16 + 1)
	if err != nil {
		return nil, err
	}
	reply.B = body[:32]
	reply.G = body[33:34]
	reply.N = body[35:67]
	reply.Salt = body[67:99]
	reply.SecurityFlags = body[115]

	if reply.SecurityFlags&constants.SecurityFlagAuthenticator != 0 {
		if _, err := c.ReadN(1); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// ReadLogonProofReply читает ответ на LOGON_PROOF. Для успешного ответа
// возвращает M2.
func (c *AuthClient) ReadLogonProofReply(postExpansion bool) (status uint8, M2 []byte, err error) {
	head, err := c.ReadN(2)
	if err != nil {
		return 0, nil, err
	}
	if head[0] != constants.CmdAuthLogonProof {
		return 0, nil, fmt.Errorf("expected proof reply, got 0x%02X", head[0])
	}

	switch head[1] {
	case constants.LoginSuccess:
		tail := 4
		if postExpansion {
			tail = 10
		}
		body, err := c.ReadN(20 + tail)
		if err != nil {
			return 0, nil, err
		}
		return head[1], body[:20], nil
	case constants.LoginDownloadFile:
		return head[1], nil, nil
	default:
		if _, err := c.ReadN(2); err != nil {
			return 0, nil, err
		}
		return head[1], nil, nil
	}
}

// ReadRealmList читает полный ответ REALM_LIST.
func (c *AuthClient) ReadRealmList() ([]byte, error) {
	head, err := c.ReadN(3)
	if err != nil {
		return nil, err
	}
	if head[0] != constants.CmdRealmList {
		return nil, fmt.Errorf("expected realm list, got 0x%02X", head[0])
	}
	body, err := c.ReadN(int(binary.LittleEndian.Uint16(head[1:])))
	if err != nil {
		return nil, err
	}
	return append(head, body...), nil
}

// Login выполняет challenge + proof и возвращает K.
func (c *AuthClient) Login(username, password string) ([]byte, error) {
	c.t.Helper()

	if err := c.Send(MakeChallengePacket(DefaultChallenge(username))); err != nil {
		return nil, err
	}
	reply, err := c.ReadChallengeReply()
	if err != nil {
		return nil, err
	}
	if reply.Status != constants.LoginSuccess {
		return nil, fmt.Errorf("challenge failed: 0x%02X", reply.Status)
	}

	proof, err := ComputeClientProof(username, password, reply.B, reply.G, reply.N, reply.Salt)
	if err != nil {
		return nil, err
	}
	if err := c.Send(MakeLogonProofPacket(proof.A, proof.M1, "")); err != nil {
		return nil, err
	}

	status, M2, err := c.ReadLogonProofReply(true)
	if err != nil {
		return nil, err
	}
	if status != constants.LoginSuccess {
		return nil, fmt.Errorf("proof failed: 0x%02X", status)
	}
	if string(M2) != string(proof.ExpectedM2) {
		return nil, fmt.Errorf("server proof mismatch")
	}
	return proof.SessionKey, nil
}
