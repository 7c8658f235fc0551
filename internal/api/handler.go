package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"job-digest/internal/hotjobs"
	"job-digest/internal/models"
)

type HotJobsService interface {
	RefreshAll(ctx context.Context) (hotjobs.Result, error)
	ForceRefreshAll(ctx context.Context) (hotjobs.Result, error)
	RefreshOne(ctx context.Context, category string) (hotjobs.Result, error)
	Remove(ctx context.Context, category, company, title string) (hotjobs.RemoveResult, error)
	List(ctx context.Context) (hotjobs.Result, error)
}

type Handler struct {
	service HotJobsService
	tiers   hotjobs.Tiers
}

func NewHandler(service HotJobsService, tiers hotjobs.Tiers) *Handler {
	return &Handler{service: service, tiers: tiers}
}

// Register mounts the hot-jobs routes under /api/hotjobs.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api/hotjobs")
	g.GET("", h.GetShortlists)
	g.POST("/refresh", h.RefreshAll)
	g.POST("/refresh/:category", h.RefreshOne)
	g.DELETE("/listings", h.RemoveListing)
}

type listingResponse struct {
	models.Listing
	Tier string `json:"tier"`
}

type categoryResponse struct {
	Name     string            `json:"name"`
	Listings []listingResponse `json:"listings"`
	Error    string            `json:"error,omitempty"`
}

type shortlistsResponse struct {
	RunID      string             `json:"run_id"`
	Categories []categoryResponse `json:"categories"`
	Saved      bool               `json:"saved"`
	Errors     []string           `json:"errors,omitempty"`
}

func (h *Handler) GetShortlists(c *gin.Context) {
	res, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(res))
}

// RefreshAll answers 200 even when some categories failed to fetch; those
// are listed under "errors" and keep their previous shortlist. With
// ?force=true every shortlist is cleared and refetched.
func (h *Handler) RefreshAll(c *gin.Context) {
	refresh := h.service.RefreshAll
	if c.Query("force") == "true" {
		refresh = h.service.ForceRefreshAll
	}
	res, err := refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(res))
}

func (h *Handler) RefreshOne(c *gin.Context) {
	res, err := h.service.RefreshOne(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(res))
}

func (h *Handler) RemoveListing(c *gin.Context) {
	category := c.Query("category")
	company := c.Query("company")
	title := c.Query("title")

	if company == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters 'company' and 'title' are required"})
		return
	}

	res, err := h.service.Remove(c.Request.Context(), category, company, title)
	if err != nil {
		h.fail(c, err)
		return
	}
	removed := res.Removed
	if removed == nil {
		removed = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": res.RunID, "removed_from": removed, "saved": res.Saved})
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.Error(err)
	var ce *hotjobs.ConfigurationError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "available": ce.Available})
	case errors.Is(err, hotjobs.ErrIncompleteListing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) render(res hotjobs.Result) shortlistsResponse {
	out := shortlistsResponse{RunID: res.RunID, Saved: res.Saved, Categories: []categoryResponse{}}
	for _, name := range res.Categories {
		cr := categoryResponse{Name: name, Listings: []listingResponse{}}
		for _, l := range res.Shortlists[name] {
			cr.Listings = append(cr.Listings, listingResponse{Listing: l, Tier: h.tiers.Label(l.Location)})
		}
		if err := res.Failed[name]; err != nil {
			cr.Error = err.Error()
			out.Errors = append(out.Errors, err.Error())
		}
		out.Categories = append(out.Categories, cr)
	}
	return out
}
