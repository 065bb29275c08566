// Package signature подписывает и проверяет тела вебхуков платёжного провайдера (HMAC-SHA512, hex).
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Sign возвращает hex-подпись body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время. Пустой секрет или подпись никогда не проходят.
func Verify(secret string, body []byte, sig string) bool {
	sig = strings.TrimSpace(sig)
	if secret == "" || sig == "" {
		return false
	}

	got, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
