// Package claimtoken issues short-lived signed tokens that reserve a
// username before signup. A visitor types a handle on the landing page,
// receives a claim token, and the token is honored at account creation
// if the handle is still free.
package claimtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const defaultTokenExpiry = 30 * time.Minute

var (
	secret []byte
	store  = &tokenStore{
		used: make(map[string]time.Time),
	}
)

type tokenStore struct {
	mu   sync.RWMutex
	used map[string]time.Time
}

type ClaimToken struct {
	Username  string `json:"usr"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nce"`
}

func SetSecret(s string) {
	secret = []byte(s)
}

func StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			cleanup()
		}
	}()
}

func Generate(username string) (string, time.Time) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}
	}

	expiresAt := time.Now().Add(defaultTokenExpiry)
	tok := ClaimToken{
		Username:  username,
		ExpiresAt: expiresAt.Unix(),
		Nonce:     hex.EncodeToString(nonce),
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return "", time.Time{}
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	return encoded + "." + sign(data), expiresAt
}

func Validate(tokenString string) (*ClaimToken, error) {
	dataPart, sigPart, err := split(tokenString)
	if err != nil {
		return nil, err
	}

	decoded, err := base64.RawURLEncoding.DecodeString(dataPart)
	if err != nil {
		return nil, fmt.Errorf("invalid token encoding")
	}

	if !hmac.Equal([]byte(sign(decoded)), []byte(sigPart)) {
		return nil, fmt.Errorf("invalid token signature")
	}

	var tok ClaimToken
	if err := json.Unmarshal(decoded, &tok); err != nil {
		return nil, fmt.Errorf("invalid token data")
	}

	if time.Now().Unix() > tok.ExpiresAt {
		return nil, fmt.Errorf("token expired")
	}

	if isUsed(tokenString) {
		return nil, fmt.Errorf("token already used")
	}

	return &tok, nil
}

// MarkUsed makes a claim token single-use once an account consumes it.
func MarkUsed(tokenString string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.used[tokenString] = time.Now()
}

func isUsed(tokenString string) bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	_, exists := store.used[tokenString]
	return exists
}

func cleanup() {
	store.mu.Lock()
	defer store.mu.Unlock()
	threshold := time.Now().Add(-defaultTokenExpiry)
	for key, usedAt := range store.used {
		if usedAt.Before(threshold) {
			delete(store.used, key)
		}
	}
}

func sign(data []byte) string {
	key := secret
	if len(key) == 0 {
		key = []byte("minilink-claim-token-fallback")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func split(tokenString string) (string, string, error) {
	for i := len(tokenString) - 1; i >= 0; i-- {
		if tokenString[i] == '.' {
			if i == len(tokenString)-1 {
				break
			}
			return tokenString[:i], tokenString[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid token format")
}
