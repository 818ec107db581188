// Administrative HTTP handlers.
//
// This file exposes operational endpoints for the search engine:
//   - POST /index/rebuild  (re-read the corpus and rebuild the index)
//   - POST /cache/clear    (drop all cached search results)
//
// Both endpoints are synchronous: the response is sent only after the
// operation has completed.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docsearch-backend/internal/services"
)

// RebuildResponse confirms a completed index rebuild.
type RebuildResponse struct {
	Status        string `json:"status" example:"rebuilt"`
	DocumentCount int    `json:"document_count" example:"1523"`
}

// ClearCacheResponse confirms that the result cache was emptied.
type ClearCacheResponse struct {
	Status string `json:"status" example:"cleared"`
}

// RebuildIndex godoc
// @ID          rebuildIndex
// @Summary     Rebuild the search index
// @Description Re-reads the corpus file, rebuilds the index from scratch, and invalidates the result cache. Searches block until the rebuild finishes.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.RebuildResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Rebuild failed"
// @Router      /index/rebuild [post]
func (h *Handlers) RebuildIndex(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.svc.RebuildIndex(ctx); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeRebuildFailed, err.Error())
		return
	}
	count := h.svc.GetStats(ctx, h.bm25).Index.DocumentCount
	ok(c, http.StatusOK, RebuildResponse{Status: "rebuilt", DocumentCount: count})
}

// ClearCache godoc
// @ID          clearCache
// @Summary     Clear the search result cache
// @Description Removes all cached search results and resets the hit/miss counters.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.ClearCacheResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Caching disabled"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cache/clear [post]
func (h *Handlers) ClearCache(c *gin.Context) {
	if err := h.svc.ClearCache(c.Request.Context()); err != nil {
		if errors.Is(err, services.ErrCacheDisabled) {
			fail(c, http.StatusConflict, ErrCodeCacheDisabled, "result caching is disabled")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ClearCacheResponse{Status: "cleared"})
}
