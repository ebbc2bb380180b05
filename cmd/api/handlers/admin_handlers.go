package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-layer/cmd/api/dto"
	"chat-layer/cmd/api/services"
)

// AdminLoginHandler godoc
// @Summary      Exchange the operator API key for an access token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      dto.AdminLoginRequestDTO  true  "api key"
// @Success      200   {object}  dto.AdminLoginResponseDTO
// @Failure      401   {object}  dto.ErrorResponseDTO
// @Router       /admin/login [post]
func AdminLoginHandler(authSvc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AdminLoginRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		token, err := authSvc.Login(req.APIKey)
		if err != nil {
			if errors.Is(err, services.ErrInvalidAPIKey) {
				c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "invalid_api_key"})
				return
			}
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "login failed"})
			return
		}
		c.JSON(http.StatusOK, dto.AdminLoginResponseDTO{AccessToken: token})
	}
}

// CreateAssistantHandler godoc
// @Summary      Register an assistant
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.AssistantRequestDTO  true  "assistant"
// @Success      201   {object}  dto.AssistantDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /admin/assistants [post]
func CreateAssistantHandler(asstSvc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AssistantRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		created, err := asstSvc.Create(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to create assistant"})
			return
		}
		c.JSON(http.StatusCreated, dto.AssistantFromModel(created))
	}
}

// ListAssistantsHandler godoc
// @Summary      List registered assistants
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page       query  int  false  "page"
// @Param        page_size  query  int  false  "page size"
// @Success      200  {array}  dto.AssistantDTO
// @Router       /admin/assistants [get]
func ListAssistantsHandler(asstSvc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		list, err := asstSvc.List(c.Request.Context(), page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to list assistants"})
			return
		}
		out := make([]dto.AssistantDTO, 0, len(list))
		for i := range list {
			out = append(out, dto.AssistantFromModel(&list[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetAssistantHandler godoc
// @Summary      Get one assistant registration
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        assistant_id  path  string  true  "assistant id"
// @Success      200  {object}  dto.AssistantDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /admin/assistants/{assistant_id} [get]
func GetAssistantHandler(asstSvc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := asstSvc.Get(c.Request.Context(), c.Param("assistant_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to load assistant"})
			return
		}
		if found == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "assistant not found"})
			return
		}
		c.JSON(http.StatusOK, dto.AssistantFromModel(found))
	}
}

// UpdateAssistantHandler godoc
// @Summary      Update an assistant registration
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        assistant_id  path  string                   true  "assistant id"
// @Param        body          body  dto.AssistantRequestDTO  true  "assistant"
// @Success      200  {object}  dto.AssistantDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /admin/assistants/{assistant_id} [put]
func UpdateAssistantHandler(asstSvc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AssistantRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		updated, err := asstSvc.Update(c.Request.Context(), c.Param("assistant_id"), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to update assistant"})
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "assistant not found"})
			return
		}
		c.JSON(http.StatusOK, dto.AssistantFromModel(updated))
	}
}

// DeleteAssistantHandler godoc
// @Summary      Delete an assistant registration
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        assistant_id  path  string  true  "assistant id"
// @Success      200  {object}  dto.MessageResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /admin/assistants/{assistant_id} [delete]
func DeleteAssistantHandler(asstSvc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := asstSvc.Delete(c.Request.Context(), c.Param("assistant_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to delete assistant"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "assistant not found"})
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "assistant deleted"})
	}
}

// CreateWebhookHandler godoc
// @Summary      Register a webhook endpoint
// @Description  The signing secret appears only in this response; store it
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.WebhookRequestDTO  true  "webhook"
// @Success      201   {object}  dto.WebhookDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /admin/webhooks [post]
func CreateWebhookHandler(whSvc *services.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.WebhookRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		created, secret, err := whSvc.Create(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		out := dto.WebhookFromModel(created)
		out.Secret = secret
		c.JSON(http.StatusCreated, out)
	}
}

// ListWebhooksHandler godoc
// @Summary      List webhook endpoints
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.WebhookDTO
// @Router       /admin/webhooks [get]
func ListWebhooksHandler(whSvc *services.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := whSvc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to list webhooks"})
			return
		}
		out := make([]dto.WebhookDTO, 0, len(list))
		for i := range list {
			out = append(out, dto.WebhookFromModel(&list[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetWebhookHandler godoc
// @Summary      Get one webhook endpoint
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        webhook_id  path  string  true  "webhook id"
// @Success      200  {object}  dto.WebhookDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /admin/webhooks/{webhook_id} [get]
func GetWebhookHandler(whSvc *services.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := whSvc.Get(c.Request.Context(), c.Param("webhook_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to load webhook"})
			return
		}
		if found == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "webhook not found"})
			return
		}
		c.JSON(http.StatusOK, dto.WebhookFromModel(found))
	}
}

// DeleteWebhookHandler godoc
// @Summary      Delete a webhook endpoint
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        webhook_id  path  string  true  "webhook id"
// @Success      200  {object}  dto.MessageResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /admin/webhooks/{webhook_id} [delete]
func DeleteWebhookHandler(whSvc *services.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := whSvc.Delete(c.Request.Context(), c.Param("webhook_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to delete webhook"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "webhook not found"})
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "webhook deleted"})
	}
}

// UsageSummaryHandler godoc
// @Summary      Usage rollup for one assistant
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        assistant_id  query  string  true   "assistant id"
// @Param        from          query  string  false  "window start (RFC3339)"
// @Param        to            query  string  false  "window end (RFC3339)"
// @Success      200  {object}  dto.UsageSummaryDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Router       /admin/analytics/usage [get]
func UsageSummaryHandler(anaSvc *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		assistantID := c.Query("assistant_id")
		if assistantID == "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "assistant_id is required"})
			return
		}

		var from, to time.Time
		if raw := c.Query("from"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid from timestamp"})
				return
			}
			from = parsed
		}
		if raw := c.Query("to"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid to timestamp"})
				return
			}
			to = parsed
		}

		summary, err := anaSvc.UsageSummary(c.Request.Context(), assistantID, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to summarize usage"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
