package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobtrail/internal/auth"
	"jobtrail/internal/database"
)

func newAuthTestEnv(t *testing.T) (*rsa.PrivateKey, *auth.Verifier, *gorm.DB) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	verifier, err := auth.NewVerifier(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return key, verifier, db
}

func accessToken(t *testing.T, key *rsa.PrivateKey, subject, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, auth.TokenClaims{
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runRequest(verifier *auth.Verifier, db *gorm.DB, authorization string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	if authorization != "" {
		c.Request.Header.Set("Authorization", authorization)
	}
	AuthMiddleware(verifier, db)(c)
	return w, c
}

func TestAuthMiddleware_ProvisionsUserOnFirstSight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key, verifier, db := newAuthTestEnv(t)
	raw := accessToken(t, key, "auth0|new-user", "new@example.com")

	w, c := runRequest(verifier, db, "Bearer "+raw)
	if w.Code == http.StatusUnauthorized {
		t.Fatalf("valid token rejected: %s", w.Body.String())
	}

	value, ok := c.Get("userID")
	if !ok {
		t.Fatal("userID not injected")
	}
	userID := value.(uint)

	var user database.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("load provisioned user: %v", err)
	}
	if user.ExternalSubject != "auth0|new-user" || user.Email != "new@example.com" {
		t.Fatalf("provisioned user wrong: %+v", user)
	}

	// Same subject resolves to the same account, not a new row.
	_, c2 := runRequest(verifier, db, "Bearer "+raw)
	value2, _ := c2.Get("userID")
	if value2.(uint) != userID {
		t.Fatalf("second request created a new user: %v vs %v", value2, userID)
	}
	var count int64
	db.Model(&database.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one user row, got %d", count)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key, verifier, db := newAuthTestEnv(t)

	cases := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"malformed", "Bearer"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, c := runRequest(verifier, db, tc.authorization)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", w.Code)
			}
			if !c.IsAborted() {
				t.Fatal("request not aborted")
			}
		})
	}

	t.Run("refresh token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, auth.TokenClaims{
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "auth0|jamie",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		raw, err := token.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		w, _ := runRequest(verifier, db, "Bearer "+raw)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("refresh token accepted: %d", w.Code)
		}
	})
}
