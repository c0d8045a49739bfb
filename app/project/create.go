package project

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/util"
	"easyforms/forms-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nameBody struct {
	Name string `json:"name"`
}

func ProjectCreate(c *gin.Context, d *internal.Deps) {
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

	id, err := util.NewID()
	if err != nil {
		respond.Internal(c, "Failed to generate project ID", err)
		return
	}

	project := model.Project{
		ID:       id,
		Name:     name,
		AuthorID: userID,
	}

	if err := d.DB.Create(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Error(c, http.StatusConflict, "A project with this name already exists")
			return
		}

		respond.Internal(c, "Failed to create project", err)
		return
	}

	d.InvalidateProjects(userID)

	zap.L().Debug("Project created", zap.String("projectID", id), zap.String("requestID", requestID))

	c.JSON(http.StatusCreated, gin.H{
		"id":   project.ID,
		"name": project.Name,
	})
}
