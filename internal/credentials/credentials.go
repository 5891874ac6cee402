// internal/credentials/credentials.go
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// TokenBytes - длина токена в байтах (64 hex-символа)
const TokenBytes = 32

// Hash возвращает hex SHA-256 пароля. Соль не используется: формат совпадает
// с уже сохранёнными в таблице User хешами.
func Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func Verify(password, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(password)), []byte(digest)) == 1
}

// GenerateToken выдаёт случайный bearer-токен. Сервер его нигде не хранит и не проверяет.
func GenerateToken() string {
	b := make([]byte, TokenBytes)
	// crypto/rand.Read не возвращает ошибку начиная с Go 1.24
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
