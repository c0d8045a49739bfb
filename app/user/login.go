package user

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if !respond.Bind(c, &data) {
		return
	}

	err := validators.First(
		validators.Field("email", validators.EmailValidator(data.Email)),
		validators.Field("password", validators.PasswordValidator(data.Password)),
	)
	if err != nil {
		respond.Invalid(c, err)
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

	ok, err := d.Argon.VerifyPasswd(data.Password, user.Hash)
	if err != nil {
		respond.Internal(c, "Failed to verify password", err)
		return
	}

	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"field":     "password",
			"message":   "Password is incorrect",
			"requestID": requestID,
		})
		return
	}

	if err := setSession(c, d, user.ID); err != nil {
		respond.Internal(c, "Failed to create session token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userID":        user.ID,
		"emailVerified": user.EmailVerified,
	})
}

func UserLogout(c *gin.Context, d *internal.Deps) {
	clearSession(c, d)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Logged out",
		"requestID": c.GetString("requestID"),
	})
}
