package app

import (
	"context"
	"easyforms/forms-api/db"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/service"
	"easyforms/forms-api/internal/store"
	"easyforms/forms-api/internal/verification"
	"easyforms/forms-api/pkg/security"
	"easyforms/forms-api/pkg/token"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/redis/go-redis/v9"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var openDB = db.New

// NewDeps builds everything the handlers need from the loaded config. The
// returned func releases the connections and must be called on shutdown.
func NewDeps(ctx context.Context) (*internal.Deps, func(), error) {
	conn, err := openDB(v.GetString("database.driver"), v.GetString("database.dsn"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	cipher, err := security.NewCipher(v.GetString("security.crypto_secret"))
	if err != nil {
		closeDB(conn)
		return nil, nil, fmt.Errorf("failed to initialize cipher, %w", err)
	}

	stores, closeStores, err := newStores(ctx)
	if err != nil {
		closeDB(conn)
		return nil, nil, err
	}

	codec := token.NewCodec(cipher)
	mailer := service.NewMailerFromConfig()
	baseURL := strings.TrimRight(v.GetString("app.base_url"), "/")
	verifyLifetime := seconds("token.email_verification_lifetime")

	d := &internal.Deps{
		DB:              conn,
		Argon:           security.New(),
		Dispatcher:      service.NewDispatcher(v.GetInt("mail.workers"), v.GetInt("mail.queue_size")),
		Cache:           persist.NewMemoryStore(time.Minute),
		SessionSecret:   []byte(v.GetString("security.jwt_secret")),
		SessionLifetime: v.GetDuration("security.session_lifetime"),
		SecureCookies:   v.GetBool("host.ssl.enabled"),
		UnverifiedTTL:   v.GetDuration("cleanup.unverified_after"),
		Resend: internal.ResendPolicy{
			Cooldown:   v.GetDuration("security.resend_cooldown"),
			DailyLimit: v.GetInt("security.resend_daily_limit"),
		},
	}

	flows := []struct {
		dst     **verification.Flow
		kind    verification.Kind
		cfg     verification.Config
		storeOf store.Store
	}{
		{&d.Verify, verification.EmailVerification, verification.Config{
			Lifetime: verifyLifetime,
			LinkBase: baseURL + "/api/users/verify",
			Email:    service.VerifyEmailContent,
		}, stores[0]},
		{&d.Update, verification.EmailUpdate, verification.Config{
			Lifetime: verifyLifetime,
			LinkBase: baseURL + "/api/profile/email",
			Email:    service.UpdateEmailContent,
		}, stores[1]},
		{&d.Reset, verification.PasswordReset, verification.Config{
			Lifetime: seconds("token.password_reset_lifetime"),
			LinkBase: baseURL + "/api/users/reset-password",
			Email:    service.ResetPasswordContent,
		}, stores[2]},
	}

	for _, f := range flows {
		flow, err := verification.New(f.kind, f.cfg, codec, f.storeOf, mailer)
		if err != nil {
			closeStores()
			closeDB(conn)
			return nil, nil, fmt.Errorf("failed to set up %s flow, %w", f.kind, err)
		}
		*f.dst = flow
	}

	cleanup := func() {
		closeStores()
		closeDB(conn)
	}

	return d, cleanup, nil
}

func closeDB(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}

	if err := sqlDB.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// newStores returns the verification, email update and password reset
// stores in that order.
func newStores(ctx context.Context) ([]store.Store, func(), error) {
	if v.GetString("store.type") == "memory" {
		zap.L().Warn("Using in-memory token store, pending tokens are lost on restart")

		mem := []*store.Memory{store.NewMemory(), store.NewMemory(), store.NewMemory()}

		return []store.Store{mem[0], mem[1], mem[2]}, func() {
			for _, m := range mem {
				m.Close()
			}
		}, nil
	}

	client, err := db.NewRedis(ctx, v.GetString("redis.address"), v.GetString("redis.password"), v.GetInt("redis.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis, %w", err)
	}

	stores := []store.Store{
		store.NewRedis(client, store.PrefixEmailVerification),
		store.NewRedis(client, store.PrefixEmailUpdate),
		store.NewRedis(client, store.PrefixPasswordReset),
	}

	closeClient := func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}

	return stores, closeClient, nil
}

// Token lifetimes are configured in seconds
func seconds(key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}
