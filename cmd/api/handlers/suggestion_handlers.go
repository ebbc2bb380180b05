package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-layer/cmd/api/dto"
	"chat-layer/cmd/api/middleware"
	"chat-layer/cmd/api/services"
	"chat-layer/models"
)

func suggestionList(items []models.FollowUpSuggestion) dto.SuggestionListDTO {
	out := dto.SuggestionListDTO{Items: make([]dto.SuggestionDTO, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, dto.SuggestionFromModel(&items[i]))
	}
	return out
}

// GenerateSuggestionsHandler godoc
// @Summary      Generate follow-up questions for a session
// @Description  Derives suggestions from the recent transcript and replaces the stored set
// @Tags         suggestions
// @Produce      json
// @Param        session_id  path  string  true  "session id"
// @Success      200  {object}  dto.SuggestionListDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /sessions/{session_id}/suggestions [post]
func GenerateSuggestionsHandler(sugSvc *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := sugSvc.Generate(c.Request.Context(), c.Param("session_id"), middleware.FingerprintFrom(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to generate suggestions"})
			return
		}
		if items == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "session not found"})
			return
		}
		c.JSON(http.StatusOK, suggestionList(items))
	}
}

// ListSuggestionsHandler godoc
// @Summary      List stored follow-up questions for a session
// @Tags         suggestions
// @Produce      json
// @Param        session_id  path   string  true   "session id"
// @Param        limit       query  int     false  "max items"
// @Success      200  {object}  dto.SuggestionListDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /sessions/{session_id}/suggestions [get]
func ListSuggestionsHandler(sugSvc *services.SuggestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))
		if limit < 1 || limit > 10 {
			limit = 3
		}
		items, err := sugSvc.List(c.Request.Context(), c.Param("session_id"), middleware.FingerprintFrom(c), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "failed to list suggestions"})
			return
		}
		if items == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "session not found"})
			return
		}
		c.JSON(http.StatusOK, suggestionList(items))
	}
}
