package form

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ownedMessage scopes a query to a message of a form the user owns
func ownedMessage(c *gin.Context, d *internal.Deps) *gorm.DB {
	userID := c.MustGet("userID").(string)

	return d.DB.
		Model(&model.Submission{}).
		Where("id = ? AND form_id = ?", c.Param("messageID"), c.Param("id")).
		Where("form_id IN (?)", d.DB.Model(&model.Form{}).Select("id").Where("author_id = ?", userID))
}

func FormMessageOpen(c *gin.Context, d *internal.Deps) {
	markMessage(c, d, map[string]any{"opened": true})
}

// FormMessageResolve marks a message resolved, which implies it was opened
func FormMessageResolve(c *gin.Context, d *internal.Deps) {
	markMessage(c, d, map[string]any{"opened": true, "resolved": true})
}

func markMessage(c *gin.Context, d *internal.Deps, updates map[string]any) {
	requestID := c.MustGet("requestID").(string)

	res := ownedMessage(c, d).Updates(updates)
	if res.Error != nil {
		respond.Internal(c, "Failed to update message", res.Error)
		return
	}

	if res.RowsAffected == 0 {
		respond.Error(c, http.StatusNotFound, "Message not found")
		return
	}

	d.InvalidateProjects(c.MustGet("userID").(string))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Message updated",
		"requestID": requestID,
	})
}

func FormMessageDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	res := ownedMessage(c, d).Delete(&model.Submission{})
	if res.Error != nil {
		respond.Internal(c, "Failed to delete message", res.Error)
		return
	}

	if res.RowsAffected == 0 {
		respond.Error(c, http.StatusNotFound, "Message not found")
		return
	}

	d.InvalidateProjects(c.MustGet("userID").(string))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Message deleted",
		"requestID": requestID,
	})
}
