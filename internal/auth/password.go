package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	// Hash はパスワードをハッシュ化し、パラメータ込みのエンコード文字列を返す。
	Hash(password string) (string, error)
	// Verify はパスワードがエンコード済みハッシュと一致するかを検証する。
	Verify(password, encodedHash string) (bool, error)
}

// argon2Params はArgon2idのコストパラメータ。
// OWASP Password Storage Cheat Sheetの推奨値に準拠する。
type argon2Params struct {
	memory      uint32 // メモリコスト（KiB）
	iterations  uint32 // 時間コスト
	parallelism uint8  // 並列度
	saltLength  uint32 // ソルト長（バイト）
	keyLength   uint32 // 導出キー長（バイト）
}

// Argon2Hasher はArgon2idによるPasswordHasherの実装。
type Argon2Hasher struct {
	params argon2Params
}

// NewArgon2Hasher はデフォルトパラメータのArgon2Hasherを生成する。
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		params: argon2Params{
			memory:      64 * 1024, // 64 MB
			iterations:  3,
			parallelism: 2,
			saltLength:  16,
			keyLength:   32,
		},
	}
}

// Hash はパスワードをArgon2idでハッシュ化する。
// 戻り値は $argon2id$v=...$m=...,t=...,p=...$salt$hash 形式のエンコード文字列。
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.iterations,
		h.params.memory,
		h.params.parallelism,
		h.params.keyLength,
	)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory,
		h.params.iterations,
		h.params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	return encoded, nil
}

// Verify はパスワードをエンコード済みハッシュと定数時間で比較する。
// ハッシュに埋め込まれたパラメータを使用するため、パラメータ変更後も
// 既存のハッシュを検証できる。
func (h *Argon2Hasher) Verify(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		params.keyLength,
	)

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// decodeArgon2Hash はエンコード済みハッシュをパラメータ・ソルト・ハッシュに分解する。
func decodeArgon2Hash(encodedHash string) (*argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	params := &argon2Params{}
	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &p); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	params.parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	params.keyLength = uint32(len(hash))

	return params, salt, hash, nil
}

// compile-time interface check
var _ PasswordHasher = (*Argon2Hasher)(nil)
