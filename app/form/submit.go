package form

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FormSubmit stores whatever JSON object a public form posts into the
// form's inbox. It's open to any origin.
func FormSubmit(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	formID := c.Param("id")

	var data model.Payload
	if !respond.Bind(c, &data) {
		return
	}

	var form model.Form

	err := d.DB.Select("id", "author_id").Where("id = ?", formID).First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, http.StatusNotFound, "Form not found")
			return
		}

		respond.Internal(c, "Failed to look up form", err)
		return
	}

	id, err := util.NewID()
	if err != nil {
		respond.Internal(c, "Failed to generate submission ID", err)
		return
	}

	if err := d.DB.Create(&model.Submission{ID: id, FormID: formID, Data: data}).Error; err != nil {
		respond.Internal(c, "Failed to save submission", err)
		return
	}

	d.InvalidateProjects(form.AuthorID)

	zap.L().Debug("Form submitted", zap.String("formID", formID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Submitted",
		"requestID": requestID,
	})
}
