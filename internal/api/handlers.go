package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	errx "github.com/bmc-uruguay/panelin-server/internal/core/error"
	"github.com/bmc-uruguay/panelin-server/internal/quote"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

type errorResponse struct {
	Error        string `json:"error"`
	SuggestedSKU string `json:"suggested_sku,omitempty"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// handleCreateQuote runs the quotation engine on the posted job description.
func (s *Server) handleCreateQuote(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	q, err := s.engine.Calculate(req)
	if err != nil {
		s.writeQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

func (s *Server) writeQuoteError(c *gin.Context, err error) {
	var spanErr *quote.SpanError
	if errors.As(err, &spanErr) {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:        spanErr.Error(),
			SuggestedSKU: spanErr.SuggestedSKU,
		})
		return
	}

	var valErr *quote.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: valErr.Error()})
		return
	}

	var nfErr *catalog.NotFoundError
	if errors.As(err, &nfErr) {
		c.JSON(http.StatusNotFound, errorResponse{Error: nfErr.Error()})
		return
	}

	logx.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("quote calculation failed")
	c.JSON(errx.StatusOf(err), errorResponse{Error: errx.SystemErrorMessage})
}

// handleListProducts lists or searches panels. With ?q= it runs a catalog
// search, otherwise it returns the whole panel list.
func (s *Server) handleListProducts(c *gin.Context) {
	query := c.Query("q")
	line := c.Query("line")

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	var panels []catalog.Panel
	switch {
	case query != "":
		panels = s.catalog.Search(query, line, limit)
	case line != "":
		panels = s.catalog.PanelsByLine(line)
	default:
		panels = s.catalog.Panels()
	}
	if len(panels) > limit {
		panels = panels[:limit]
	}

	c.JSON(http.StatusOK, gin.H{"count": len(panels), "products": panels})
}

// handleGetProduct returns one panel or accessory by SKU.
func (s *Server) handleGetProduct(c *gin.Context) {
	sku := c.Param("sku")

	if p, err := s.catalog.PanelBySKU(sku); err == nil {
		c.JSON(http.StatusOK, p)
		return
	}
	if a, err := s.catalog.AccessoryBySKU(sku); err == nil {
		c.JSON(http.StatusOK, a)
		return
	}

	c.JSON(http.StatusNotFound, errorResponse{Error: (&catalog.NotFoundError{SKU: sku}).Error()})
}

// handleChat forwards a user message through the conversation graph.
func (s *Server) handleChat(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "assistant is not configured"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := s.runner.Invoke(c.Request.Context(), model.QueryInput{
		ConversationID: req.ConversationID,
		Query:          req.Message,
	})
	if err != nil {
		logx.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("conversation_id", req.ConversationID).
			Msg("chat invocation failed")
		c.JSON(errx.StatusOf(err), errorResponse{Error: errx.SystemErrorMessage})
		return
	}

	c.JSON(http.StatusOK, chatResponse{ConversationID: req.ConversationID, Reply: reply})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
