package user

import (
	"context"
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/internal/verification"
	"easyforms/forms-api/pkg/validators"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type resendBody struct {
	Email string `json:"email"`
}

// UserVerify redeems an email verification link
func UserVerify(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusBadRequest, "No verification token provided")
		return
	}

	r, err := d.Verify.Check(c.Request.Context(), token)
	if err != nil {
		respond.TokenError(c, err)
		return
	}

	var user model.User

	if err := d.DB.Where("email = ?", r.Subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "User not found")
			return
		}

		respond.Internal(c, "Failed to look up user", err)
		return
	}

	if user.EmailVerified {
		respond.Error(c, http.StatusConflict, "Email is already verified")
		return
	}

	_, err = d.Verify.Consume(c.Request.Context(), token, func(ctx context.Context, _ *verification.Redemption) error {
		return d.DB.WithContext(ctx).
			Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"email_verified": true,
				"expires_at":     nil,
			}).
			Error
	})
	if err != nil {
		respond.TokenError(c, err)
		return
	}

	zap.L().Debug("User verified", zap.String("userID", user.ID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email verified successfully",
		"requestID": requestID,
	})
}

// UserResendVerification mails a new verification link. Unlike registration
// this fails when the mail can't be sent.
func UserResendVerification(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
	if !respond.Bind(c, &data) {
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		respond.Invalid(c, validators.Field("email", err))
		return
	}

	var user model.User

	if err := d.DB.Where("email = ?", data.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "User not found")
			return
		}

		respond.Internal(c, "Failed to look up user", err)
		return
	}

	if user.EmailVerified {
		respond.Error(c, http.StatusConflict, "Email is already verified")
		return
	}

	allowed, err := allowResend(d, user.ID, time.Now())
	if err != nil {
		respond.Internal(c, "Failed to check resend requests", err)
		return
	}

	if !allowed {
		respond.Error(c, http.StatusTooManyRequests, "Too many verification emails requested, please try again later")
		return
	}

	if _, err := d.Verify.Start(c.Request.Context(), user.Email, ""); err != nil {
		if errors.Is(err, verification.ErrDelivery) {
			respond.Internal(c, "Failed to send verification email", err)
			return
		}

		respond.Internal(c, "Failed to start email verification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Verification email sent",
		"requestID": requestID,
	})
}

// allowResend records a resend attempt and reports whether it's allowed.
// Users get a cooldown between attempts and a daily limit, going over the
// limit blocks them for a day.
func allowResend(d *internal.Deps, userID string, now time.Time) (bool, error) {
	allowed := false

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		var req model.ResendRequest

		err := tx.Where("user_id = ?", userID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			allowed = true
			return tx.Create(&model.ResendRequest{UserID: userID, LastResend: now, Count: 1}).Error
		}
		if err != nil {
			return err
		}

		if req.BlockedUntil != nil && now.Before(*req.BlockedUntil) {
			return nil
		}

		if now.Sub(req.LastResend) < d.Resend.Cooldown {
			return nil
		}

		// a new day starts a new window
		if now.Sub(req.LastResend) >= 24*time.Hour || req.BlockedUntil != nil {
			req.Count = 0
			req.BlockedUntil = nil
		}

		if req.Count >= d.Resend.DailyLimit {
			blocked := now.Add(24 * time.Hour)
			req.BlockedUntil = &blocked
			return tx.Save(&req).Error
		}

		allowed = true
		req.Count++
		req.LastResend = now

		return tx.Save(&req).Error
	})

	return allowed, err
}
