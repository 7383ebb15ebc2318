package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// GenerateURLToken 生成 URL-safe 的随机 token，n 为原始随机字节数
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var errInvalidState = errors.New("invalid oauth state")

// SignState 生成无状态的 OAuth state：nonce.过期时间.签名
// serverless 实例之间不共享内存，state 需要自带校验信息
func SignState(secret string, ttl time.Duration) (string, error) {
	nonce, err := GenerateURLToken(16)
	if err != nil {
		return "", err
	}
	payload := nonce + "." + strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	return payload + "." + stateMAC(secret, payload), nil
}

// VerifyState 校验 SignState 生成的 state
func VerifyState(secret, state string) error {
	i := strings.LastIndex(state, ".")
	if i < 0 {
		return errInvalidState
	}
	payload, mac := state[:i], state[i+1:]
	if !hmac.Equal([]byte(mac), []byte(stateMAC(secret, payload))) {
		return errInvalidState
	}
	parts := strings.Split(payload, ".")
	if len(parts) != 2 {
		return errInvalidState
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return errInvalidState
	}
	return nil
}

func stateMAC(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
