package project

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

func ProjectUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data nameBody
	if !respond.Bind(c, &data) {
		return
	}

	name, err := validators.NameValidator(data.Name)
	if err != nil {
		respond.Invalid(c, validators.Field("name", err))
		return
	}

	res := d.DB.
		Model(&model.Project{}).
		Where("id = ? AND author_id = ?", c.Param("id"), userID).
		Update("name", name)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			respond.Error(c, http.StatusConflict, "A project with this name already exists")
			return
		}

		respond.Internal(c, "Failed to rename project", res.Error)
		return
	}

	if res.RowsAffected == 0 {
		respond.Error(c, http.StatusNotFound, "Project not found. It either doesn't exist or you don't own it")
		return
	}

	d.InvalidateProjects(userID)

	c.JSON(http.StatusOK, gin.H{
		"id":        c.Param("id"),
		"name":      name,
		"requestID": requestID,
	})
}
