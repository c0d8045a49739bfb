package form

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FormFetch returns a form with its inbox, newest messages first
func FormFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var form model.Form

	err := d.DB.
		Where("id = ? AND author_id = ?", c.Param("id"), userID).
		Preload("Inbox", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&form).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "Form not found. It either doesn't exist or you don't own it")
			return
		}

		respond.Internal(c, "Failed to fetch form", err)
		return
	}

	if form.Inbox == nil {
		form.Inbox = []model.Submission{}
	}

	c.JSON(http.StatusOK, form)
}
