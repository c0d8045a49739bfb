package project

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errProjectNotFound = errors.New("project not found")

// ProjectDelete removes a project along with its forms and their inboxes
func ProjectDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	projectID := c.Param("id")

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND author_id = ?", projectID, userID).Delete(&model.Project{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return errProjectNotFound
		}

		forms := tx.Model(&model.Form{}).Select("id").Where("project_id = ?", projectID)

		if err := tx.Where("form_id IN (?)", forms).Delete(&model.Submission{}).Error; err != nil {
			return err
		}

		return tx.Where("project_id = ?", projectID).Delete(&model.Form{}).Error
	})
	if err != nil {
		if errors.Is(err, errProjectNotFound) {
			respond.Error(c, http.StatusNotFound, "Project not found. It either doesn't exist or you don't own it")
			return
		}

		respond.Internal(c, "Failed to delete project", err)
		return
	}

	d.InvalidateProjects(userID)

	zap.L().Debug("Project deleted", zap.String("projectID", projectID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Project deleted",
		"requestID": requestID,
	})
}
