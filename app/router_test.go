package app

import (
	"bytes"
	"errors"
	"easyforms/forms-api/db"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/internal/service"
	"easyforms/forms-api/internal/store"
	"easyforms/forms-api/internal/verification"
	"easyforms/forms-api/pkg/middleware"
	"easyforms/forms-api/pkg/security"
	"easyforms/forms-api/pkg/token"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	baseURL   = "https://forms.example.com"
	dashboard = "https://dashboard.example.com"
	password  = "correct horse 1"
)

var tokenPattern = regexp.MustCompile(`\?token=([A-Za-z0-9_%\-]+)`)

func init() {
	gin.SetMode(gin.TestMode)
}

type mail struct {
	to, html string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (s *fakeSender) Send(to, _, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, mail{to, html})
	return nil
}

// fail makes every following Send return err
func (s *fakeSender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// last returns the token of the latest mail sent to addr
func (s *fakeSender) last(addr string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].to != addr {
			continue
		}

		m := tokenPattern.FindStringSubmatch(s.sent[i].html)
		if m == nil {
			return "", false
		}
		return m[1], true
	}

	return "", false
}

func (s *fakeSender) count(addr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.sent {
		if m.to == addr {
			n++
		}
	}
	return n
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	d      *internal.Deps
	sender *fakeSender
	clock  *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v.Reset()
	t.Cleanup(v.Reset)
	v.Set("security.rate_limit", 1000)
	v.Set("host.body_limit", 1<<20)
	v.Set("host.cors", dashboard)

	conn, err := db.New("sqlite", "file::memory:")
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	cipher, err := security.NewCipher("router-test-secret-router-test-secret")
	require.NoError(t, err)

	clk := &clock{t: time.Now()}
	codec := token.NewCodec(cipher, token.WithClock(clk.now))
	sender := &fakeSender{}

	d := &internal.Deps{
		DB: conn,
		Argon: &security.ArgonHash{
			Memory:      1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Dispatcher:      service.NewDispatcher(1, 16),
		Cache:           persist.NewMemoryStore(time.Minute),
		SessionSecret:   []byte("router-test-session-secret"),
		SessionLifetime: time.Hour,
		UnverifiedTTL:   24 * time.Hour,
		Resend:          internal.ResendPolicy{Cooldown: time.Minute, DailyLimit: 3},
	}

	newFlow := func(kind verification.Kind, path string, content service.EmailContent) *verification.Flow {
		st := store.NewMemory()
		t.Cleanup(func() { st.Close() })

		f, err := verification.New(kind, verification.Config{
			Lifetime: time.Hour,
			LinkBase: baseURL + path,
			Email:    content,
		}, codec, st, sender)
		require.NoError(t, err)

		return f
	}

	d.Verify = newFlow(verification.EmailVerification, "/api/users/verify", service.VerifyEmailContent)
	d.Update = newFlow(verification.EmailUpdate, "/api/profile/email", service.UpdateEmailContent)
	d.Reset = newFlow(verification.PasswordReset, "/api/users/reset-password", service.ResetPasswordContent)

	d.Dispatcher.StartWorkerPool()
	t.Cleanup(func() { d.Dispatcher.Stop(time.Second) })

	router, stop := NewRouter(d)
	t.Cleanup(stop)

	return &harness{t: t, router: router, d: d, sender: sender, clock: clk}
}

func (h *harness) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}

	t.Fatal("no session cookie set")
	return nil
}

// waitForToken waits for the asynchronous verification mail
func (h *harness) waitForToken(addr string) string {
	h.t.Helper()

	var tok string
	require.Eventually(h.t, func() bool {
		var ok bool
		tok, ok = h.sender.last(addr)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	return tok
}

// verifiedUser registers and verifies a user, returning its session cookie
func (h *harness) verifiedUser(email string) *http.Cookie {
	h.t.Helper()

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                email,
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	cookie := sessionCookie(h.t, w)

	tok := h.waitForToken(email)
	w = h.do(http.MethodGet, "/api/users/verify?token="+tok, nil)
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())

	return cookie
}

func TestRegisterAndVerify(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "new@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["userID"])
	cookie := sessionCookie(t, w)

	// unverified users can't use the dashboard
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/profile", nil, cookie).Code)

	tok := h.waitForToken("new@example.com")

	w = h.do(http.MethodGet, "/api/users/verify?token="+tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// a link works once
	w = h.do(http.MethodGet, "/api/users/verify?token="+tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)
	assert.Equal(t, "new@example.com", profile["email"])
	assert.Equal(t, true, profile["emailVerified"])

	var user model.User
	require.NoError(t, h.d.DB.Where("email = ?", "new@example.com").First(&user).Error)
	assert.Nil(t, user.ExpiresAt)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "not an email",
		"password":             password,
		"passwordConfirmation": password,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode(t, w)["field"])

	w = h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "user@example.com",
		"password":             password,
		"passwordConfirmation": "something else",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "passwordConfirmation", decode(t, w)["field"])

	h.verifiedUser("user@example.com")

	w = h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "user@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVerifyTokenErrors(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/users/verify", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/users/verify?token=garbage", nil).Code)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "late@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	tok := h.waitForToken("late@example.com")
	h.clock.advance(2 * time.Hour)

	w = h.do(http.MethodGet, "/api/users/verify?token="+tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Token expired", decode(t, w)["error"])
}

func TestVerifyDeletedUser(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "gone@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	tok := h.waitForToken("gone@example.com")
	require.NoError(t, h.d.DB.Where("email = ?", "gone@example.com").Delete(&model.User{}).Error)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/users/verify?token="+tok, nil).Code)
}

func TestResendVerification(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "slow@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	h.waitForToken("slow@example.com")

	w = h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "slow@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, h.sender.count("slow@example.com"))

	// still in the cooldown
	w = h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "slow@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "nobody@example.com"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "nope"}).Code)

	h.verifiedUser("done@example.com")
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "done@example.com"}).Code)
}

func TestMailFailures(t *testing.T) {
	errSMTP := errors.New("smtp: connection refused")

	t.Run("register still succeeds", func(t *testing.T) {
		h := newHarness(t)
		h.sender.fail(errSMTP)

		w := h.do(http.MethodPost, "/api/users/register", gin.H{
			"email":                "offline@example.com",
			"password":             password,
			"passwordConfirmation": password,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		sessionCookie(t, w)

		var user model.User
		require.NoError(t, h.d.DB.Where("email = ?", "offline@example.com").First(&user).Error)
		assert.False(t, user.EmailVerified)
	})

	t.Run("resend verification", func(t *testing.T) {
		h := newHarness(t)

		w := h.do(http.MethodPost, "/api/users/register", gin.H{
			"email":                "resend@example.com",
			"password":             password,
			"passwordConfirmation": password,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		h.waitForToken("resend@example.com")

		h.sender.fail(errSMTP)
		w = h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "resend@example.com"})
		assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	})

	t.Run("reset password", func(t *testing.T) {
		h := newHarness(t)
		h.verifiedUser("reset@example.com")

		h.sender.fail(errSMTP)
		w := h.do(http.MethodPost, "/api/users/reset-password", gin.H{
			"email":                   "reset@example.com",
			"newPassword":             "brand new pass 2",
			"newPasswordConfirmation": "brand new pass 2",
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

		assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "reset@example.com", "password": password}).Code)
	})

	t.Run("profile left untouched", func(t *testing.T) {
		h := newHarness(t)
		cookie := h.verifiedUser("keep@example.com")

		h.sender.fail(errSMTP)
		w := h.do(http.MethodPost, "/api/profile", gin.H{
			"email":                "moved@example.com",
			"name":                 "Jane Doe",
			"password":             "another pass 3",
			"passwordConfirmation": "another pass 3",
		}, cookie)
		require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

		var user model.User
		require.NoError(t, h.d.DB.Where("email = ?", "keep@example.com").First(&user).Error)
		assert.NotEqual(t, "jane doe", user.Name)

		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "keep@example.com", "password": "another pass 3"}).Code)
		assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "keep@example.com", "password": password}).Code)
	})
}

func TestResetPasswordWriteFailure(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser("disk@example.com")

	w := h.do(http.MethodPost, "/api/users/reset-password", gin.H{
		"email":                   "disk@example.com",
		"newPassword":             "brand new pass 2",
		"newPasswordConfirmation": "brand new pass 2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tok, ok := h.sender.last("disk@example.com")
	require.True(t, ok)

	err := h.d.DB.Callback().Update().Before("gorm:update").Register("test:fail_users", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			tx.AddError(errors.New("disk I/O error"))
		}
	})
	require.NoError(t, err)

	w = h.do(http.MethodGet, "/api/users/reset-password?token="+tok, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

	// the token is spent even though the write failed
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/users/reset-password?token="+tok, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "disk@example.com", "password": password}).Code)
}

func TestResendDailyLimit(t *testing.T) {
	h := newHarness(t)
	h.d.Resend.Cooldown = 0

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "spam@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 0; i < h.d.Resend.DailyLimit; i++ {
		w = h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "spam@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, "/api/users/verify", gin.H{"email": "spam@example.com"}).Code)

	var req model.ResendRequest
	require.NoError(t, h.d.DB.Joins("JOIN users ON users.id = resend_requests.user_id").Where("users.email = ?", "spam@example.com").First(&req).Error)
	require.NotNil(t, req.BlockedUntil)
	assert.True(t, req.BlockedUntil.After(time.Now().Add(23*time.Hour)))
}

func TestLoginLogout(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser("login@example.com")

	w := h.do(http.MethodPost, "/api/users/login", gin.H{"email": "login@example.com", "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "login@example.com", "password": "wrong password"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "who@example.com", "password": password}).Code)

	w = h.do(http.MethodGet, "/api/users/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			assert.Empty(t, c.Value)
		}
	}

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/users/logout", nil).Code)
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)
	h.verifiedUser("forgot@example.com")

	const newPassword = "brand new pass 2"

	w := h.do(http.MethodPost, "/api/users/reset-password", gin.H{
		"email":                   "forgot@example.com",
		"newPassword":             newPassword,
		"newPasswordConfirmation": newPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tok, ok := h.sender.last("forgot@example.com")
	require.True(t, ok)

	// the old password keeps working until the link is opened
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "forgot@example.com", "password": password}).Code)

	w = h.do(http.MethodGet, "/api/users/reset-password?token="+tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/users/reset-password?token="+tok, nil).Code)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "forgot@example.com", "password": password}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "forgot@example.com", "password": newPassword}).Code)
}

func TestResetPasswordRequiresVerifiedUser(t *testing.T) {
	h := newHarness(t)

	body := func(email string) gin.H {
		return gin.H{
			"email":                   email,
			"newPassword":             "brand new pass 2",
			"newPasswordConfirmation": "brand new pass 2",
		}
	}

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/users/reset-password", body("who@example.com")).Code)

	w := h.do(http.MethodPost, "/api/users/register", gin.H{
		"email":                "pending@example.com",
		"password":             password,
		"passwordConfirmation": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/users/reset-password", body("pending@example.com")).Code)

	// tokens from another flow don't redeem here
	tok := h.waitForToken("pending@example.com")
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/users/reset-password?token="+tok, nil).Code)
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)
	cookie := h.verifiedUser("old@example.com")
	h.verifiedUser("taken@example.com")

	w := h.do(http.MethodPost, "/api/profile", gin.H{}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["newEmail"])

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/profile", gin.H{"email": "taken@example.com"}, cookie).Code)

	w = h.do(http.MethodPost, "/api/profile", gin.H{"email": "fresh@example.com", "name": "Jane Doe"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["newEmail"])

	tok, ok := h.sender.last("fresh@example.com")
	require.True(t, ok)

	// the link only works for the account that asked for it
	other := h.verifiedUser("other@example.com")
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/profile/email?token="+tok, nil, other).Code)

	w = h.do(http.MethodGet, "/api/profile/email?token="+tok, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)
	assert.Equal(t, "fresh@example.com", profile["email"])
	assert.Equal(t, "jane doe", profile["name"])
}

func TestProfileEmailTakenMeanwhile(t *testing.T) {
	h := newHarness(t)
	cookie := h.verifiedUser("first@example.com")

	w := h.do(http.MethodPost, "/api/profile", gin.H{"email": "race@example.com"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	tok, ok := h.sender.last("race@example.com")
	require.True(t, ok)

	require.NoError(t, h.d.DB.Create(&model.User{
		ID:            "racer",
		Email:         "race@example.com",
		Hash:          "hash",
		EmailVerified: true,
	}).Error)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodGet, "/api/profile/email?token="+tok, nil, cookie).Code)
}

func TestProfilePasswordChange(t *testing.T) {
	h := newHarness(t)
	cookie := h.verifiedUser("pw@example.com")

	w := h.do(http.MethodPost, "/api/profile", gin.H{"password": "another pass 3", "passwordConfirmation": "mismatch"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/profile", gin.H{"password": "another pass 3", "passwordConfirmation": "another pass 3"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["newPassword"])

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/users/login", gin.H{"email": "pw@example.com", "password": "another pass 3"}).Code)
}

func TestProjectsAndForms(t *testing.T) {
	h := newHarness(t)
	cookie := h.verifiedUser("owner@example.com")
	stranger := h.verifiedUser("stranger@example.com")

	w := h.do(http.MethodPost, "/api/projects", gin.H{"name": "Website"}, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := decode(t, w)["id"].(string)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/projects", gin.H{"name": "website"}, cookie).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/projects", gin.H{"name": "x"}, cookie).Code)

	w = h.do(http.MethodPost, "/api/forms", gin.H{"name": "Contact", "project": projectID}, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	formID := decode(t, w)["id"].(string)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/forms", gin.H{"name": "contact", "project": projectID}, cookie).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/forms", gin.H{"name": "Contact", "project": projectID}, stranger).Code)

	// submissions need no session
	w = h.do(http.MethodPost, "/api/forms/"+formID+"/submit", gin.H{"name": "Visitor", "message": "Hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/forms/"+formID+"/submit", gin.H{"message": "Again"}).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/forms/missing/submit", gin.H{"a": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/forms/"+formID+"/submit", []int{1, 2}).Code)

	w = h.do(http.MethodGet, "/api/projects", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var projects []projectListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "website", projects[0].Name)
	require.Len(t, projects[0].Forms, 1)
	assert.Equal(t, int64(2), projects[0].Forms[0].Count)
	assert.Equal(t, int64(2), projects[0].Forms[0].Unopened)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/forms/"+formID, nil, stranger).Code)

	w = h.do(http.MethodGet, "/api/forms/"+formID, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var form model.Form
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	require.Len(t, form.Inbox, 2)
	assert.Equal(t, projectID, form.ProjectID)

	messageID := form.Inbox[0].ID
	inbox := "/api/forms/" + formID + "/inbox/" + messageID

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, inbox+"/open", nil, stranger).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPatch, inbox+"/resolve", nil, cookie).Code)

	var msg model.Submission
	require.NoError(t, h.d.DB.Where("id = ?", messageID).First(&msg).Error)
	assert.True(t, msg.Opened)
	assert.True(t, msg.Resolved)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, inbox, nil, cookie).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, inbox, nil, cookie).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/api/projects/"+projectID, gin.H{"name": "Renamed"}, stranger).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPatch, "/api/projects/"+projectID, gin.H{"name": "Renamed"}, cookie).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/projects/"+projectID, nil, stranger).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/projects/"+projectID, nil, cookie).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/forms/"+formID, nil, cookie).Code)

	var left int64
	require.NoError(t, h.d.DB.Model(&model.Submission{}).Where("form_id = ?", formID).Count(&left).Error)
	assert.Zero(t, left)
}

type projectListing struct {
	Name  string `json:"name"`
	Forms []struct {
		Count    int64 `json:"count"`
		Unopened int64 `json:"unopened"`
	} `json:"forms"`
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/profile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/projects", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/forms", gin.H{}).Code)
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		return w
	}

	w := preflight("/api/forms/abc/submit", "https://somebodys-site.example.org")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("/api/projects", dashboard)
	assert.Equal(t, dashboard, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = preflight("/api/projects", "https://evil.example.org")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHeartbeatAndMetrics(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodHead, "/api/heartbeat", nil).Code)

	w := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "easyforms_http_requests_total")
}

func TestBodyLimit(t *testing.T) {
	h := newHarness(t)
	v.Set("host.body_limit", 16)

	router, stop := NewRouter(h.d)
	t.Cleanup(stop)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(bytes.Repeat([]byte("a"), 64)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMakeLogger(t *testing.T) {
	require.NoError(t, MakeLogger("debug"))
	assert.Error(t, MakeLogger("loud"))
}
