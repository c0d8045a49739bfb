package user

import (
	"easyforms/forms-api/internal"
	"easyforms/forms-api/pkg/middleware"
	"easyforms/forms-api/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

func setSession(c *gin.Context, d *internal.Deps, userID string) error {
	tok, err := security.NewSessionToken(userID, d.SessionSecret, d.SessionLifetime)
	if err != nil {
		return err
	}

	maxAge := int(d.SessionLifetime.Seconds())

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, tok, maxAge, "/", "", d.SecureCookies, true)
	c.SetCookie(middleware.LoggedInCookie, "1", maxAge, "/", "", d.SecureCookies, false)

	return nil
}

func clearSession(c *gin.Context, d *internal.Deps) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", d.SecureCookies, true)
	c.SetCookie(middleware.LoggedInCookie, "", -1, "/", "", d.SecureCookies, false)
}
