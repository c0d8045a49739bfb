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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type resetBody struct {
	Email                   string `json:"email"`
	NewPassword             string `json:"newPassword"`
	NewPasswordConfirmation string `json:"newPasswordConfirmation"`
}

// UserResetPassword starts a password reset. The new password is hashed
// right away and only the hash travels with the token.
func UserResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resetBody
	if !respond.Bind(c, &data) {
		return
	}

	err := validators.First(
		validators.Field("email", validators.EmailValidator(data.Email)),
		validators.Field("newPassword", validators.PasswordValidator(data.NewPassword)),
		validators.Field("newPasswordConfirmation", validators.ConfirmationValidator(data.NewPassword, data.NewPasswordConfirmation)),
	)
	if err != nil {
		respond.Invalid(c, err)
		return
	}

	user, ok := findVerifiedUser(c, d, data.Email)
	if !ok {
		return
	}

	hash, err := d.Argon.GenerateFromPassword(data.NewPassword)
	if err != nil {
		respond.Internal(c, "Failed to hash password", err)
		return
	}

	if _, err := d.Reset.Start(c.Request.Context(), user.Email, hash); err != nil {
		if errors.Is(err, verification.ErrDelivery) {
			respond.Internal(c, "Failed to send password reset email", err)
			return
		}

		respond.Internal(c, "Failed to start password reset", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Password reset email sent",
		"requestID": requestID,
	})
}

// UserConfirmResetPassword redeems a password reset link
func UserConfirmResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusBadRequest, "No reset token provided")
		return
	}

	r, err := d.Reset.Check(c.Request.Context(), token)
	if err != nil {
		respond.TokenError(c, err)
		return
	}

	user, ok := findVerifiedUser(c, d, r.Subject)
	if !ok {
		return
	}

	// The record is deleted before the new hash is saved, a failed save needs a new reset
	_, err = d.Reset.Consume(c.Request.Context(), token, func(ctx context.Context, r *verification.Redemption) error {
		return d.DB.WithContext(ctx).
			Model(&model.User{}).
			Where("id = ?", user.ID).
			Update("hash", r.Value).
			Error
	})
	if err != nil {
		respond.TokenError(c, err)
		return
	}

	zap.L().Debug("Password reset", zap.String("userID", user.ID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Password changed successfully",
		"requestID": requestID,
	})
}

func findVerifiedUser(c *gin.Context, d *internal.Deps, email string) (*model.User, bool) {
	var user model.User

	if err := d.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "User not found")
			return nil, false
		}

		respond.Internal(c, "Failed to look up user", err)
		return nil, false
	}

	if !user.EmailVerified {
		respond.Error(c, http.StatusForbidden, "Please verify your email first")
		return nil, false
	}

	return &user, true
}
