package profile

import (
	"context"
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/internal/verification"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errEmailTaken = errors.New("email taken")

// ProfileConfirmEmail redeems the link sent to a new email address
func ProfileConfirmEmail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	token := c.Query("token")
	if token == "" {
		respond.Error(c, http.StatusBadRequest, "No token provided")
		return
	}

	r, err := d.Update.Check(c.Request.Context(), token)
	if err != nil {
		respond.TokenError(c, err)
		return
	}

	if r.Value != user.ID {
		respond.Error(c, http.StatusBadRequest, "Token invalid")
		return
	}

	if taken, err := emailTaken(d.DB, r.Subject); err != nil {
		respond.Internal(c, "Failed to check if email is taken", err)
		return
	} else if taken {
		respond.Error(c, http.StatusConflict, "This email is already in use")
		return
	}

	_, err = d.Update.Consume(c.Request.Context(), token, func(ctx context.Context, r *verification.Redemption) error {
		err := d.DB.WithContext(ctx).
			Model(&model.User{}).
			Where("id = ?", user.ID).
			Update("email", r.Subject).
			Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errEmailTaken
		}

		return err
	})
	if err != nil {
		// someone registered the address between the check and the update
		if errors.Is(err, errEmailTaken) {
			respond.Error(c, http.StatusConflict, "This email is already in use")
			return
		}

		respond.TokenError(c, err)
		return
	}

	zap.L().Debug("Email updated", zap.String("userID", user.ID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"email":     r.Subject,
		"requestID": requestID,
	})
}

func emailTaken(db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.Model(&model.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}
