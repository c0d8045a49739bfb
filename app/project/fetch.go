package project

import (
	"easyforms/forms-api/app/respond"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/internal/model"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type formSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Count    int64     `json:"count"`
	Unopened int64     `json:"unopened"`
}

type projectSummary struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Created time.Time     `json:"created"`
	Forms   []formSummary `json:"forms"`
}

type inboxCount struct {
	FormID   string
	Total    int64
	Unopened int64
}

// ProjectFetch lists the user's projects with their forms and how many
// messages each form's inbox holds.
func ProjectFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var projects []model.Project

	err := d.DB.
		Where("author_id = ?", userID).
		Preload("Forms", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Order("created_at").
		Find(&projects).
		Error
	if err != nil {
		respond.Internal(c, "Failed to fetch projects", err)
		return
	}

	var counts []inboxCount

	err = d.DB.
		Model(&model.Submission{}).
		Select("form_id, COUNT(*) AS total, SUM(CASE WHEN opened THEN 0 ELSE 1 END) AS unopened").
		Where("form_id IN (?)", d.DB.Model(&model.Form{}).Select("id").Where("author_id = ?", userID)).
		Group("form_id").
		Scan(&counts).
		Error
	if err != nil {
		respond.Internal(c, "Failed to count form messages", err)
		return
	}

	byForm := make(map[string]inboxCount, len(counts))
	for _, n := range counts {
		byForm[n.FormID] = n
	}

	resp := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		forms := make([]formSummary, 0, len(p.Forms))
		for _, f := range p.Forms {
			n := byForm[f.ID]
			forms = append(forms, formSummary{
				ID:       f.ID,
				Name:     f.Name,
				Created:  f.CreatedAt,
				Count:    n.Total,
				Unopened: n.Unopened,
			})
		}

		resp = append(resp, projectSummary{
			ID:      p.ID,
			Name:    p.Name,
			Created: p.CreatedAt,
			Forms:   forms,
		})
	}

	c.JSON(http.StatusOK, resp)
}
