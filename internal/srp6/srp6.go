// Package srp6 implements the server side of the SRP6 variant spoken by the
// game client: fixed 256-bit group, g = 7, k = 3, SHA1 everywhere and
// little-endian fixed-width byte arrays on the wire.
package srp6

import (
	"crypto/sha1"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/realmd/internal/bignum"
)

// Wire widths in bytes.
const (
	KeySize                = 32 // N, A, B, S
	SaltSize               = 32
	SessionKeySize         = 40
	DigestSize             = sha1.Size
	ReconnectChallengeSize = 16

	privateKeyBits = 160
)

var (
	// N is the group modulus.
	N = bignum.MustFromHex("894B645E89E1535BBDAD5B8B290650530801B18EBFBF5E8FAB3C82872A3E9BB7")
	// G is the group generator.
	G = bignum.FromUint32(7)

	k = bignum.FromUint32(3)
)

// ErrZeroEphemeral is returned when the client public value is 0 mod N.
var ErrZeroEphemeral = errors.New("srp6: client public value is zero mod N")

// CredentialHash returns the stored credential form: uppercase hex of
// SHA1(UPPER(user) ":" UPPER(pass)).
func CredentialHash(username, password string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToUpper(username)))
	h.Write([]byte(":"))
	h.Write([]byte(strings.ToUpper(password)))
	return fmt.Sprintf("%X", h.Sum(nil))
}

// ComputeVerifier derives v = g^x mod N, x = H(s ‖ credential digest).
func ComputeVerifier(credentialHex string, salt *bignum.Number) (*bignum.Number, error) {
	cred, err := bignum.FromHex(credentialHex)
	if err != nil {
		return nil, fmt.Errorf("parsing credential hash: %w", err)
	}
	// restore leading zeros of the digest lost by the hex form
	digest := cred.BytesLE(DigestSize)
	slices.Reverse(digest)

	h := sha1.New()
	h.Write(salt.BytesLE(SaltSize))
	h.Write(digest)
	x := bignum.FromBytesLE(h.Sum(nil))

	return G.ModExp(x, N), nil
}

// NewVerifier draws a random salt and computes the matching verifier.
func NewVerifier(credentialHex string) (v, s *bignum.Number, err error) {
	s, err = bignum.Random(SaltSize * 8)
	if err != nil {
		return nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	v, err = ComputeVerifier(credentialHex, s)
	if err != nil {
		return nil, nil, err
	}
	return v, s, nil
}

// Server holds one challenge's worth of server state.
type Server struct {
	v *bignum.Number
	s *bignum.Number
	b *bignum.Number
	B *bignum.Number
}

// NewServer draws the private ephemeral b and computes B = (k*v + g^b) mod N.
func NewServer(v, s *bignum.Number) (*Server, error) {
	b, err := bignum.Random(privateKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generating private ephemeral: %w", err)
	}
	return NewServerWithPrivate(v, s, b), nil
}

// NewServerWithPrivate is NewServer with a caller-supplied b.
func NewServerWithPrivate(v, s, b *bignum.Number) *Server {
	B := k.ModMul(v, N).ModAdd(G.ModExp(b, N), N)
	return &Server{v: v, s: s, b: b, B: B}
}

// PublicKey returns B as 32 little-endian bytes.
func (srv *Server) PublicKey() []byte {
	return srv.B.BytesLE(KeySize)
}

// Salt returns s as 32 little-endian bytes.
func (srv *Server) Salt() []byte {
	return srv.s.BytesLE(SaltSize)
}

// Proof is the result of checking a client proof.
type Proof struct {
	// SessionKey is K. Only meaningful when Valid.
	SessionKey []byte
	// M is the server-computed client proof, input of the M2 hash.
	M     []byte
	Valid bool
}

// CheckProof verifies the client's A and M1 for account name login.
func (srv *Server) CheckProof(login string, A, M1 []byte) (Proof, error) {
	if len(A) != KeySize || len(M1) != DigestSize {
		return Proof{}, fmt.Errorf("srp6: bad proof sizes A=%d M1=%d", len(A), len(M1))
	}

	a := bignum.FromBytesLE(A)
	if a.Mod(N).IsZero() {
		return Proof{}, ErrZeroEphemeral
	}

	Bbytes := srv.PublicKey()
	u := bignum.FromBytesLE(hash(A, Bbytes))
	// S = (A * v^u)^b mod N
	S := a.ModMul(srv.v.ModExp(u, N), N).ModExp(srv.b, N)
	K := SessionKey(S)

	M := ClientProof(login, srv.s.BytesLE(SaltSize), A, Bbytes, K)

	return Proof{
		SessionKey: K,
		M:          M,
		Valid:      subtle.ConstantTimeCompare(M, M1) == 1,
	}, nil
}

// SessionKey expands S into the 40-byte K: even bytes of S hashed into the
// even positions of K, odd bytes into the odd positions.
func SessionKey(S *bignum.Number) []byte {
	t := S.BytesLE(KeySize)
	half := make([]byte, KeySize/2)

	for i := range half {
		half[i] = t[i*2]
	}
	even := hash(half)

	for i := range half {
		half[i] = t[i*2+1]
	}
	odd := hash(half)

	K := make([]byte, SessionKeySize)
	for i := range DigestSize {
		K[i*2] = even[i]
		K[i*2+1] = odd[i]
	}
	return K
}

// ClientProof computes M = H(H(N) xor H(g) ‖ H(I) ‖ s ‖ A ‖ B ‖ K).
func ClientProof(login string, salt, A, B, K []byte) []byte {
	ng := hash(N.BytesLE(KeySize))
	gh := hash(G.BytesLE(1))
	for i := range ng {
		ng[i] ^= gh[i]
	}
	return hash(ng, hash([]byte(login)), salt, A, B, K)
}

// ServerProof computes M2 = H(A ‖ M ‖ K).
func ServerProof(A, M, K []byte) []byte {
	return hash(A, M, K)
}

// NewReconnectChallenge returns 16 random bytes.
func NewReconnectChallenge() ([]byte, error) {
	r, err := bignum.Random(ReconnectChallengeSize * 8)
	if err != nil {
		return nil, fmt.Errorf("generating reconnect challenge: %w", err)
	}
	return r.BytesLE(ReconnectChallengeSize), nil
}

// ReconnectProof computes H(I ‖ R1 ‖ challenge ‖ K).
func ReconnectProof(login string, R1, challenge, K []byte) []byte {
	return hash([]byte(login), R1, challenge, K)
}

// CheckReconnectProof reports whether R2 matches ReconnectProof.
func CheckReconnectProof(login string, R1, challenge, K, R2 []byte) bool {
	want := ReconnectProof(login, R1, challenge, K)
	return subtle.ConstantTimeCompare(want, R2) == 1
}

func hash(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
