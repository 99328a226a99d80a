package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mansoora/rehaish/internal/agent"
	apierrors "github.com/mansoora/rehaish/internal/errors"
	"github.com/mansoora/rehaish/internal/middleware"
)

// AskHandler exposes the natural-language query pipeline over HTTP.
type AskHandler struct {
	pipeline agent.Pipeline
}

// NewAskHandler creates a new AskHandler instance.
func NewAskHandler(pipeline agent.Pipeline) *AskHandler {
	return &AskHandler{
		pipeline: pipeline,
	}
}

// AskRequest is the JSON body of the ask endpoint.
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// AskResponse carries the composed answer and the ids it was built from.
type AskResponse struct {
	Response   string `json:"response"`
	MatchedIDs []int  `json:"matched_ids"`
}

// Ask handles POST /ask.
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		apierrors.BadRequest(c, "Query must not be empty", nil)
		return
	}

	st := &agent.State{Query: query}
	if err := h.pipeline.Run(c.Request.Context(), st); err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Query pipeline failed", err, map[string]interface{}{
				"query": query,
			})
		}
		apierrors.InternalServerError(c, "Failed to answer query", err)
		return
	}

	matched := st.Matches
	if matched == nil {
		matched = []int{}
	}
	c.JSON(200, AskResponse{
		Response:   st.Response,
		MatchedIDs: matched,
	})
}
