package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/panelgate/internal/api/middleware"
	"github.com/timmy/panelgate/internal/service"
)

// SurveyLinkHandler serves respondent clicks and survey completion signals.
type SurveyLinkHandler struct {
	dispatch   *service.DispatchService
	reconciler *service.CompletionReconciler
}

// NewSurveyLinkHandler creates a new survey link handler.
// Parameters:
//   - dispatch: routes clicks to survey links.
//   - reconciler: applies completion signals.
// Returns:
//   - *SurveyLinkHandler: initialized handler.
func NewSurveyLinkHandler(dispatch *service.DispatchService, reconciler *service.CompletionReconciler) *SurveyLinkHandler {
	return &SurveyLinkHandler{dispatch: dispatch, reconciler: reconciler}
}

// DispatchRequest is the body of POST /api/v1/survey-links.
type DispatchRequest struct {
	STID string `json:"stid"`
	UID  string `json:"uid"`
}

// CompletionRequest is the body of POST /api/v1/survey-links/redirect.
// UID carries the hash identifier the survey platform echoes back.
type CompletionRequest struct {
	UID string `json:"uid"`
	End string `json:"end"`
}

// TestLinkRequest is the body of POST /api/v1/survey-links/test.
type TestLinkRequest struct {
	ProjectID uint `json:"project_id"`
}

// Dispatch handles POST /api/v1/survey-links. Every screening outcome is a
// 200: rejected respondents get a thank-you link instead of a survey link.
func (h *SurveyLinkHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.dispatch.Dispatch(c.Request.Context(), service.DispatchRequest{
		STID:      req.STID,
		UID:       req.UID,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if rejected := result.Err(); rejected != nil {
		middleware.GetLogger(c).WithError(rejected).Debug("Respondent sent to thank-you page")
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"link":   result.Link,
	})
}

// Complete handles POST /api/v1/survey-links/redirect.
func (h *SurveyLinkHandler) Complete(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.reconciler.Complete(c.Request.Context(), req.UID, req.End)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"redirectLink": result.RedirectLink,
	})
}

// TestLink handles POST /api/v1/survey-links/test.
func (h *SurveyLinkHandler) TestLink(c *gin.Context) {
	var req TestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.dispatch.TestLink(c.Request.Context(), req.ProjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"link":   link,
	})
}
