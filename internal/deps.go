package internal

import (
	"easyforms/forms-api/internal/service"
	"easyforms/forms-api/internal/verification"
	"easyforms/forms-api/pkg/security"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"gorm.io/gorm"
)

// ResendPolicy throttles explicit requests to resend the verification email
type ResendPolicy struct {
	Cooldown   time.Duration
	DailyLimit int
}

type Deps struct {
	DB    *gorm.DB
	Argon *security.ArgonHash

	Verify *verification.Flow // email verification after registration
	Update *verification.Flow // confirmation of a new email address
	Reset  *verification.Flow // password reset

	Dispatcher *service.Dispatcher
	Cache      persist.CacheStore

	SessionSecret   []byte
	SessionLifetime time.Duration
	SecureCookies   bool
	UnverifiedTTL   time.Duration
	Resend          ResendPolicy
}

// ProjectsCacheKey is the response cache key of a user's project listing
func ProjectsCacheKey(userID string) string {
	return "projects:" + userID
}

// InvalidateProjects drops the cached project listing of a user after it changed
func (d *Deps) InvalidateProjects(userID string) {
	if d.Cache != nil {
		d.Cache.Delete(ProjectsCacheKey(userID))
	}
}
