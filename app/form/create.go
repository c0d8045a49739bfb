package form

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

type createBody struct {
	Name    string `json:"name"`
	Project string `json:"project"`
}

func FormCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data createBody
	if !respond.Bind(c, &data) {
		return
	}

	name, err := validators.NameValidator(data.Name)
	if err != nil {
		respond.Invalid(c, validators.Field("name", err))
		return
	}

	if data.Project == "" {
		respond.Invalid(c, validators.Field("project", errors.New("no project provided")))
		return
	}

	var owned int64

	err = d.DB.
		Model(&model.Project{}).
		Where("id = ? AND author_id = ?", data.Project, userID).
		Count(&owned).
		Error
	if err != nil {
		respond.Internal(c, "Failed to check if project exists", err)
		return
	}

	if owned == 0 {
		respond.Error(c, http.StatusNotFound, "Project not found. It either doesn't exist or you don't own it")
		return
	}

	id, err := util.NewID()
	if err != nil {
		respond.Internal(c, "Failed to generate form ID", err)
		return
	}

	form := model.Form{
		ID:        id,
		Name:      name,
		AuthorID:  userID,
		ProjectID: data.Project,
	}

	if err := d.DB.Create(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Error(c, http.StatusConflict, "A form with this name already exists in the project")
			return
		}

		respond.Internal(c, "Failed to create form", err)
		return
	}

	d.InvalidateProjects(userID)

	zap.L().Debug("Form created", zap.String("formID", id), zap.String("requestID", requestID))

	c.JSON(http.StatusCreated, form)
}
