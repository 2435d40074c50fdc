package testutil

import (
	"crypto/sha1"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/realmd/internal/bignum"
)

// Клиентская сторона SRP6 написана отдельно от internal/srp6: хеши собираются
// здесь по байтам, чтобы ошибка в раскладке M/M2/R2 сервера не повторялась в
// тестах.

// SRPClientProof — результат клиентской части SRP6 (эталонная реализация клиента).
type SRPClientProof struct {
	A          []byte // 32 bytes LE
	M1         []byte // 20 bytes
	SessionKey []byte // 40 bytes
	// ExpectedM2 — то, что сервер обязан вернуть в LOGON_PROOF.
	ExpectedM2 []byte
}

// sha1Of хеширует конкатенацию parts.
func sha1Of(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// ComputeClientProof выполняет клиентскую сторону SRP6 по значениям из
// LOGON_CHALLENGE ответа (B, g, N, s — как пришли по сети, little-endian).
func ComputeClientProof(username, password string, B, g, N, salt []byte) (*SRPClientProof, error) {
	a, err := bignum.Random(152)
	if err != nil {
		return nil, fmt.Errorf("generating client private key: %w", err)
	}
	return ComputeClientProofWithPrivate(username, password, B, g, N, salt, a)
}

// ComputeClientProofWithPrivate — детерминированный вариант ComputeClientProof.
func ComputeClientProofWithPrivate(username, password string, B, g, N, salt []byte, a *bignum.Number) (*SRPClientProof, error) {
	user := strings.ToUpper(username)
	width := len(N)

	n := bignum.FromBytesLE(N)
	gen := bignum.FromBytesLE(g)
	b := bignum.FromBytesLE(B)
	if b.Mod(n).IsZero() {
		return nil, fmt.Errorf("server public key is zero mod N")
	}

	// x = H(s ‖ H(USER:PASS))
	cred := sha1Of([]byte(user + ":" + strings.ToUpper(password)))
	x := bignum.FromBytesLE(sha1Of(salt, cred))

	A := gen.ModExp(a, n).BytesLE(width)
	u := bignum.FromBytesLE(sha1Of(A, B))

	// S = (B - k*g^x)^(a + u*x) mod N, k = 3
	kgx := bignum.FromUint32(3).ModMul(gen.ModExp(x, n), n)
	S := b.ModSub(kgx, n).ModExp(a.Add(u.Mul(x)), n).BytesLE(width)

	// K: чётные байты S хешируются в чётные позиции, нечётные — в нечётные
	even := make([]byte, 0, width/2)
	odd := make([]byte, 0, width/2)
	for i := 0; i+1 < width; i += 2 {
		even = append(even, S[i])
		odd = append(odd, S[i+1])
	}
	evenHash, oddHash := sha1Of(even), sha1Of(odd)
	K := make([]byte, 0, 2*sha1.Size)
	for i := range sha1.Size {
		K = append(K, evenHash[i], oddHash[i])
	}

	// M1 = H(H(N) xor H(g) ‖ H(I) ‖ s ‖ A ‖ B ‖ K)
	nHash := sha1Of(N)
	gHash := sha1Of(g)
	ngXor := make([]byte, sha1.Size)
	for i := range ngXor {
		ngXor[i] = nHash[i] ^ gHash[i]
	}
	M1 := sha1Of(ngXor, sha1Of([]byte(user)), salt, A, B, K)

	return &SRPClientProof{
		A:          A,
		M1:         M1,
		SessionKey: K,
		// M2 = H(A ‖ M1 ‖ K)
		ExpectedM2: sha1Of(A, M1, K),
	}, nil
}

// ReconnectProof строит R1/R2 для RECONNECT_PROOF по известному K:
// R2 = H(I ‖ R1 ‖ challenge ‖ K).
func ReconnectProof(username string, challenge, K []byte) (R1, R2 []byte) {
	R1 = make([]byte, 16)
	for i := range R1 {
		R1[i] = byte(i*7 + 3)
	}
	R2 = sha1Of([]byte(strings.ToUpper(username)), R1, challenge, K)
	return R1, R2
}

// FlipBit возвращает копию b с инвертированным битом bit.
func FlipBit(b []byte, bit int) []byte {
	out := slices.Clone(b)
	out[bit/8] ^= 1 << (bit % 8)
	return out
}
