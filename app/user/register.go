package user

import (
	"context"
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/util"
	"easyforms/forms-api/pkg/validators"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registerBody struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if !respond.Bind(c, &data) {
		return
	}

	err := validators.First(
		validators.Field("email", validators.EmailValidator(data.Email)),
		validators.Field("password", validators.PasswordValidator(data.Password)),
		validators.Field("passwordConfirmation", validators.ConfirmationValidator(data.Password, data.PasswordConfirmation)),
	)
	if err != nil {
		respond.Invalid(c, err)
		return
	}

	var found int64

	err = d.DB.Model(&model.User{}).
		Where("email = ?", data.Email).
		Count(&found).
		Error
	if err != nil {
		respond.Internal(c, "Failed to check if user is registered", err)
		return
	}

	if found > 0 {
		respond.Error(c, http.StatusConflict, "This email is already registered. Please login or use a different email")
		return
	}

	hash, err := d.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		respond.Internal(c, "Failed to hash password", err)
		return
	}

	userID, err := util.NewID()
	if err != nil {
		respond.Internal(c, "Failed to generate user ID", err)
		return
	}

	// Accounts that don't verify in time get removed by the cleanup job
	expiry := time.Now().Add(d.UnverifiedTTL)

	if err := d.DB.Create(&model.User{
		ID:        userID,
		Email:     data.Email,
		Hash:      hash,
		ExpiresAt: &expiry,
	}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Error(c, http.StatusConflict, "This email is already registered. Please login or use a different email")
			return
		}

		respond.Internal(c, "Failed to create user", err)
		return
	}

	// Registration doesn't depend on the mail going through, the user can ask for another one
	email := data.Email
	d.Dispatcher.Go("verification mail", func(ctx context.Context) error {
		_, err := d.Verify.Start(ctx, email, "")
		return err
	})

	if err := setSession(c, d, userID); err != nil {
		respond.Internal(c, "Failed to create session token", err)
		return
	}

	zap.L().Debug("User registered", zap.String("userID", userID), zap.String("requestID", requestID))

	c.JSON(http.StatusCreated, gin.H{
		"userID": userID,
	})
}
