package profile

import (
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

func ProfileFetch(c *gin.Context, _ *internal.Deps) {
	user := c.MustGet("user").(*model.User)

	c.JSON(http.StatusOK, gin.H{
		"email":         user.Email,
		"name":          user.Name,
		"emailVerified": user.EmailVerified,
	})
}
