package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-layer/cmd/api/dto"
	"chat-layer/cmd/api/middleware"
	"chat-layer/cmd/api/services"
)

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ListSessionsHandler godoc
// @Summary      List the caller's sessions
// @Tags         sessions
// @Produce      json
// @Param        page       query  int  false  "page"
// @Param        page_size  query  int  false  "page size"
// @Success      200  {object}  dto.SessionListDTO
// @Router       /sessions [get]
func ListSessionsHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		sessions, total, err := convSvc.ListSessions(c.Request.Context(), middleware.FingerprintFrom(c), page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to list sessions"})
			return
		}

		items := make([]dto.SessionDTO, 0, len(sessions))
		for i := range sessions {
			items = append(items, dto.SessionFromModel(&sessions[i]))
		}
		c.JSON(http.StatusOK, dto.SessionListDTO{
			Items:    items,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

// GetSessionHandler godoc
// @Summary      Get one session with its message history
// @Tags         sessions
// @Produce      json
// @Param        session_id  path  string  true  "session id"
// @Success      200  {object}  dto.SessionDetailDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /sessions/{session_id} [get]
func GetSessionHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, msgs, err := convSvc.GetSession(c.Request.Context(), c.Param("session_id"), middleware.FingerprintFrom(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to load session"})
			return
		}
		if session == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "session not found"})
			return
		}

		messages := make([]dto.MessageDTO, 0, len(msgs))
		for i := range msgs {
			messages = append(messages, dto.MessageFromModel(&msgs[i]))
		}
		c.JSON(http.StatusOK, dto.SessionDetailDTO{
			Session:  dto.SessionFromModel(session),
			Messages: messages,
		})
	}
}

// DeleteSessionHandler godoc
// @Summary      Delete a session, its messages and its remote thread
// @Tags         sessions
// @Produce      json
// @Param        session_id  path  string  true  "session id"
// @Success      200  {object}  dto.MessageResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /sessions/{session_id} [delete]
func DeleteSessionHandler(convSvc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := convSvc.Delete(c.Request.Context(), c.Param("session_id"), middleware.FingerprintFrom(c)); err != nil {
			abortWithConversationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "session deleted"})
	}
}
