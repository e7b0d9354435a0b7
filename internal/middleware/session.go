package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SessionConfig describes the sessions written by the admin app. This service
// only reads them.
type SessionConfig struct {
	CookieName  string
	RedisPrefix string
	LookupLimit time.Duration
	// Secret, when set, is the admin app's session secret. Cookies must then
	// be signed ("s:id.sig") and unsigned or forged ones stay anonymous.
	Secret string
}

const (
	DefaultSessionCookie = "hst.sid"
	DefaultSessionPrefix = "session:"
)

// SessionUser is the shape stored in the session under "user".
type SessionUser struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session loads the staff session from Redis into Locals("user"). A missing
// cookie, unknown session or Redis error leaves the request anonymous.
func Session(rdb *redis.Client, cfg SessionConfig) fiber.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = DefaultSessionPrefix
	}
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = 2 * time.Second
	}
	return func(c *fiber.Ctx) error {
		c.Locals(userLocal, nil)
		sid := sessionID(c.Cookies(cfg.CookieName), cfg.Secret)
		if sid == "" || rdb == nil {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.LookupLimit)
		b, err := rdb.Get(ctx, cfg.RedisPrefix+sid).Bytes()
		cancel()
		if err != nil {
			return c.Next()
		}
		var data map[string]interface{}
		if json.Unmarshal(b, &data) == nil {
			if u, ok := data["user"].(map[string]interface{}); ok {
				c.Locals(userLocal, u)
			}
		}
		return c.Next()
	}
}

// sessionID extracts the id from a connect-style cookie ("s:id.signature").
// With a secret the signature must be the unpadded base64 HMAC-SHA256 of id;
// without one the signature is stripped unchecked.
func sessionID(cookie, secret string) string {
	if unescaped, err := url.PathUnescape(cookie); err == nil {
		cookie = unescaped
	}
	if !strings.HasPrefix(cookie, "s:") {
		if secret != "" {
			return ""
		}
		return cookie
	}
	signed := cookie[2:]
	dot := strings.LastIndexByte(signed, '.')
	if dot < 0 {
		if secret != "" {
			return ""
		}
		return signed
	}
	id, sig := signed[:dot], signed[dot+1:]
	if secret == "" {
		return id
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	want := base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return ""
	}
	return id
}
