// Package api exposes the engine over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/japaniel/tapdict/pkg/engine"
	"github.com/japaniel/tapdict/pkg/lookup"
	"github.com/japaniel/tapdict/pkg/reader"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondWithError aborts the request with a JSON error body.
func respondWithError(ctx *gin.Context, err error, status int) {
	ctx.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// Handler serves the dictionary API from an engine.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a Handler for e.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

type lookupResponse struct {
	Query string `json:"query"`
	Found bool   `json:"found"`
	// Result is omitted on a miss.
	Result *lookup.Result `json:"result,omitempty"`
}

// Lookup handles GET /lookup?q=...&dict=a&dict=b.
func (h *Handler) Lookup(ctx *gin.Context) {
	q := ctx.Query("q")
	if strings.TrimSpace(q) == "" {
		respondWithError(ctx, fmt.Errorf("missing query parameter q"), http.StatusBadRequest)
		return
	}
	res, err := h.engine.Lookup(ctx.Request.Context(), q, ctx.QueryArray("dict"))
	if err != nil {
		respondWithError(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, lookupResponse{Query: q, Found: res != nil, Result: res})
}

type scanRequest struct {
	Text         string   `json:"text"`
	HTML         string   `json:"html"`
	URL          string   `json:"url"`
	Dictionaries []string `json:"dictionaries"`
}

// Scan handles POST /scan. The body carries plain text, or an HTML page
// whose article text is scanned.
func (h *Handler) Scan(ctx *gin.Context) {
	var req scanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondWithError(ctx, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	text := req.Text
	if req.HTML != "" {
		art, err := reader.ExtractArticle(strings.NewReader(req.HTML), req.URL)
		if err != nil {
			respondWithError(ctx, err, http.StatusUnprocessableEntity)
			return
		}
		text = art.Text
	}
	if strings.TrimSpace(text) == "" {
		respondWithError(ctx, fmt.Errorf("nothing to scan"), http.StatusBadRequest)
		return
	}
	res, err := h.engine.Scan(ctx.Request.Context(), text, req.Dictionaries)
	if errors.Is(err, engine.ErrNoAnalyzer) {
		respondWithError(ctx, err, http.StatusNotImplemented)
		return
	}
	if err != nil {
		respondWithError(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Dictionaries handles GET /dictionaries.
func (h *Handler) Dictionaries(ctx *gin.Context) {
	infos, err := h.engine.Dictionaries(ctx.Request.Context())
	if err != nil {
		respondWithError(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"dictionaries": infos,
		"enabled":      h.engine.Enabled(),
	})
}

// DeleteDictionary handles DELETE /dictionaries/:id.
func (h *Handler) DeleteDictionary(ctx *gin.Context) {
	id := ctx.Param("id")
	err := h.engine.Delete(ctx.Request.Context(), id)
	if errors.Is(err, dictionary.ErrUnknownDictionary) {
		respondWithError(ctx, err, http.StatusNotFound)
		return
	}
	if err != nil {
		respondWithError(ctx, err, http.StatusInternalServerError)
		return
	}
	ctx.Status(http.StatusNoContent)
}
