package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"github.com/lalith-99/estatehub/internal/repository"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

// PropertyHandler serves /v1/properties. Handlers only translate HTTP to
// service calls: every permission and state decision is made in
// internal/service with the caller taken from the middleware.
type PropertyHandler struct {
	commands *service.PropertyCommands
	queries  *service.PropertyQueries
	logger   *zap.Logger
}

func NewPropertyHandler(commands *service.PropertyCommands, queries *service.PropertyQueries, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{commands: commands, queries: queries, logger: logger}
}

type coordinatesRequest struct {
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
}

type locationRequest struct {
	Address     string              `json:"address"`
	City        string              `json:"city"`
	State       string              `json:"state"`
	Country     string              `json:"country"`
	Coordinates *coordinatesRequest `json:"coordinates"`
}

func (l locationRequest) toModel() models.Location {
	loc := models.Location{
		Address: l.Address,
		City:    l.City,
		State:   l.State,
		Country: l.Country,
	}
	if l.Coordinates != nil {
		loc.Coordinates = &models.Coordinates{
			Longitude: l.Coordinates.Longitude,
			Latitude:  l.Coordinates.Latitude,
		}
	}
	return loc
}

type createPropertyRequest struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Location    locationRequest `json:"location"`
	Price       *float64        `json:"price" binding:"required,gte=0"`
	Images      []string        `json:"images" binding:"max=10,dive,required"`
	Type        string          `json:"type" binding:"required,oneof=apartment house villa commercial land"`
	Metadata    map[string]any  `json:"metadata"`
}

// updatePropertyRequest uses pointers so an absent field is left alone.
type updatePropertyRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Location    *locationRequest `json:"location"`
	Price       *float64         `json:"price" binding:"omitempty,gte=0"`
	Images      *[]string        `json:"images" binding:"omitempty,max=10,dive,required"`
	Type        *string          `json:"type" binding:"omitempty,oneof=apartment house villa commercial land"`
	Metadata    map[string]any   `json:"metadata"`
}

func (r updatePropertyRequest) toModel() models.PropertyUpdate {
	u := models.PropertyUpdate{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Metadata:    r.Metadata,
		SetMetadata: r.Metadata != nil,
	}
	if r.Location != nil {
		loc := r.Location.toModel()
		u.Location = &loc
	}
	if r.Images != nil {
		u.Images = *r.Images
		u.SetImages = true
	}
	if r.Type != nil {
		t := models.PropertyType(*r.Type)
		u.Type = &t
	}
	return u
}

type listPropertiesQuery struct {
	Page        int      `form:"page" binding:"omitempty,min=1"`
	Limit       int      `form:"limit" binding:"omitempty,min=1"`
	Status      string   `form:"status"`
	City        string   `form:"city"`
	Type        string   `form:"type"`
	MinPrice    *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice    *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Near        string   `form:"near"`
	MaxDistance string   `form:"maxDistance"`
	SortBy      string   `form:"sortBy"`
	SortOrder   string   `form:"sortOrder"`
}

type propertyListResponse struct {
	Data  []service.PropertyResponse `json:"data"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

// List handles GET /v1/properties
func (h *PropertyHandler) List(c *gin.Context) {
	var q listPropertiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.GetCaller(c)
	page, err := h.queries.List(c.Request.Context(), caller, service.ListInput{
		Page:        q.Page,
		Limit:       q.Limit,
		Status:      q.Status,
		City:        q.City,
		Type:        q.Type,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		Near:        q.Near,
		MaxDistance: q.MaxDistance,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to list properties")
		return
	}
	h.respondPage(c, page)
}

// pageQuery is the paging of the per-user listings.
type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type myPropertiesQuery struct {
	pageQuery
	Status string `form:"status"`
}

// ListMine handles GET /v1/properties/my
func (h *PropertyHandler) ListMine(c *gin.Context) {
	var q myPropertiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller := middleware.GetCaller(c)
	page, err := h.queries.ListByOwner(c.Request.Context(), caller, caller.UserID, service.OwnerListInput{
		Page:   q.Page,
		Limit:  q.Limit,
		Status: q.Status,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to list properties")
		return
	}
	h.respondPage(c, page)
}

// ListFavorites handles GET /v1/properties/favorites
func (h *PropertyHandler) ListFavorites(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.queries.ListFavorites(c.Request.Context(), middleware.GetCaller(c), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.logger, err, "failed to list favorites")
		return
	}
	h.respondPage(c, page)
}

func (h *PropertyHandler) respondPage(c *gin.Context, page *repository.PropertyPage) {
	data, err := h.queries.Present(c.Request.Context(), middleware.GetCaller(c), page.Data...)
	if err != nil {
		respondError(c, h.logger, err, "failed to list properties")
		return
	}
	c.JSON(http.StatusOK, propertyListResponse{
		Data:  data,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

// Get handles GET /v1/properties/:id
//
// An authenticated read counts as a view the first time that user sees a
// published listing. A failed view count is logged and does not fail the
// read.
func (h *PropertyHandler) Get(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	caller := middleware.GetCaller(c)

	p, err := h.queries.Get(ctx, caller, id)
	if err != nil {
		respondError(c, h.logger, err, "failed to get property")
		return
	}

	counted, err := h.commands.RecordView(ctx, caller, id)
	if err != nil {
		h.logger.Warn("failed to record view", zap.String("property_id", id.String()), zap.Error(err))
	}
	if counted {
		p.Views++
	}

	h.respond(c, http.StatusOK, p)
}

// Validate handles GET /v1/properties/:id/validate
func (h *PropertyHandler) Validate(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	result, err := h.queries.ValidateForPublishing(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.logger, err, "failed to validate property")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /v1/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.commands.Create(c.Request.Context(), middleware.GetCaller(c), service.CreatePropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location.toModel(),
		Price:       *req.Price,
		Images:      req.Images,
		Type:        models.PropertyType(req.Type),
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to create property")
		return
	}
	h.respond(c, http.StatusCreated, p)
}

// Update handles PATCH /v1/properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.commands.Update(c.Request.Context(), middleware.GetCaller(c), id, req.toModel())
	if err != nil {
		respondError(c, h.logger, err, "failed to update property")
		return
	}
	h.respond(c, http.StatusOK, p)
}

// Delete handles DELETE /v1/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	if err := h.commands.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.logger, err, "failed to delete property")
		return
	}
	c.Status(http.StatusNoContent)
}

// Publish, Archive, Disable and Enable share one shape: POST with no body,
// respond with the listing in its new state.
func (h *PropertyHandler) Publish(c *gin.Context) {
	h.transition(c, h.commands.Publish, "failed to publish property")
}

func (h *PropertyHandler) Archive(c *gin.Context) {
	h.transition(c, h.commands.Archive, "failed to archive property")
}

func (h *PropertyHandler) Disable(c *gin.Context) {
	h.transition(c, h.commands.Disable, "failed to disable property")
}

func (h *PropertyHandler) Enable(c *gin.Context) {
	h.transition(c, h.commands.Enable, "failed to enable property")
}

// AddFavorite handles POST /v1/properties/:id/favorite
func (h *PropertyHandler) AddFavorite(c *gin.Context) {
	h.transition(c, h.commands.AddFavorite, "failed to add favorite")
}

// RemoveFavorite handles DELETE /v1/properties/:id/favorite
func (h *PropertyHandler) RemoveFavorite(c *gin.Context) {
	h.transition(c, h.commands.RemoveFavorite, "failed to remove favorite")
}

// FavoriteStatus handles GET /v1/properties/:id/favorite/status
func (h *PropertyHandler) FavoriteStatus(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	favorited, err := h.queries.IsFavorited(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.logger, err, "failed to check favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_id": id, "is_favorited": favorited})
}

type transitionFunc = func(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error)

func (h *PropertyHandler) transition(c *gin.Context, fn transitionFunc, fallback string) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.logger, err, fallback)
		return
	}
	h.respond(c, http.StatusOK, p)
}

func (h *PropertyHandler) respond(c *gin.Context, status int, p *models.Property) {
	resp, err := h.queries.PresentOne(c.Request.Context(), middleware.GetCaller(c), p)
	if err != nil {
		respondError(c, h.logger, err, "failed to load property owner")
		return
	}
	c.JSON(status, resp)
}
