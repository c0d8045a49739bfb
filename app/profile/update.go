package profile

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/validators"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type updateBody struct {
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// ProfileUpdate changes the name and password right away. A new email is
// only applied once the link sent to it is opened.
func ProfileUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	var data updateBody
	if !respond.Bind(c, &data) {
		return
	}

	data.Email = strings.TrimSpace(data.Email)
	if data.Email == user.Email {
		data.Email = ""
	}

	var name string
	if data.Name != "" {
		n, err := validators.NameValidator(data.Name)
		if err != nil {
			respond.Invalid(c, validators.Field("name", err))
			return
		}
		name = n
	}

	err := validators.First(
		emailErr(data.Email),
		passwordErr(data.Password, data.PasswordConfirmation),
	)
	if err != nil {
		respond.Invalid(c, err)
		return
	}

	if data.Email != "" {
		var taken int64

		err := d.DB.Model(&model.User{}).
			Where("email = ?", data.Email).
			Count(&taken).
			Error
		if err != nil {
			respond.Internal(c, "Failed to check if email is taken", err)
			return
		}

		if taken > 0 {
			respond.Error(c, http.StatusConflict, "This email is already in use")
			return
		}
	}

	// Started before anything is written so a failed mail leaves the
	// profile untouched. The token carries the user ID so the link only
	// works for this account.
	if data.Email != "" {
		if _, err := d.Update.Start(c.Request.Context(), data.Email, user.ID); err != nil {
			respond.Internal(c, "Failed to start email update", err)
			return
		}
	}

	updates := map[string]any{}

	if name != "" && name != user.Name {
		updates["name"] = name
	}

	if data.Password != "" {
		hash, err := d.Argon.GenerateFromPassword(data.Password)
		if err != nil {
			respond.Internal(c, "Failed to hash password", err)
			return
		}
		updates["hash"] = hash
	}

	if len(updates) > 0 {
		if err := d.DB.Model(user).Updates(updates).Error; err != nil {
			respond.Internal(c, "Failed to update profile", err)
			return
		}
	}

	zap.L().Debug("Profile updated",
		zap.String("userID", user.ID),
		zap.Bool("emailChange", data.Email != ""),
		zap.Int("fields", len(updates)),
		zap.String("requestID", requestID),
	)

	c.JSON(http.StatusOK, gin.H{
		"newEmail":    data.Email != "",
		"newPassword": data.Password != "",
		"requestID":   requestID,
	})
}

func emailErr(email string) error {
	if email == "" {
		return nil
	}

	return validators.Field("email", validators.EmailValidator(email))
}

func passwordErr(p, confirmation string) error {
	if p == "" && confirmation == "" {
		return nil
	}

	return validators.First(
		validators.Field("password", validators.PasswordValidator(p)),
		validators.Field("passwordConfirmation", validators.ConfirmationValidator(p, confirmation)),
	)
}
