package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxSessionIDKey   = "session_id" // string
	SessionCookieName = "sf_session"
)

type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
	Secure bool // 本番はtrue（https only）
}

// セッション用の署名付きトークン
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session はcookie（またはBearer）のセッショントークンを検証し、
// 無い・不正ならセッションを新しく発行する。
func Session(cfg SessionConfig, newID func() string, now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//既存トークン
			if raw := sessionToken(c.Request()); raw != "" {
				if sid, err := ParseSessionToken(cfg.Secret, raw, now()); err == nil {
					c.Set(CtxSessionIDKey, sid)
					return next(c)
				}
			}

			//新規発行
			sid := newID()
			signed, expiresAt, err := IssueSessionToken(cfg.Secret, sid, now(), cfg.TTL)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("session error"))
			}

			c.SetCookie(&http.Cookie{
				Name:     SessionCookieName,
				Value:    signed,
				Path:     "/",
				Expires:  expiresAt,
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(CtxSessionIDKey, sid)

			return next(c)
		}
	}
}

// HS256で署名
func IssueSessionToken(secret []byte, sessionID string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// 署名と有効期限を確認してセッションIDを返す
func ParseSessionToken(secret []byte, raw string, now time.Time) (string, error) {
	var claims sessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", errors.New("invalid session token")
	}
	//jwtの検証は実時刻なので、注入された時刻でも確認する
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return "", errors.New("session expired")
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return "", errors.New("invalid sid")
	}
	return claims.SessionID, nil
}

// cookie → Authorization: Bearer の順
func sessionToken(r *http.Request) string {
	if ck, err := r.Cookie(SessionCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	authz := r.Header.Get("Authorization")
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
