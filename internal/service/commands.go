package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"github.com/lalith-99/estatehub/internal/repository"
	"go.uber.org/zap"
)

// ImageStore keeps listing images somewhere addressable by URL.
type ImageStore interface {
	// Upload stores files under folder and returns their public URLs in
	// the same order. It stores all of them or none.
	Upload(ctx context.Context, folder string, files []models.Upload) ([]string, error)
	Delete(ctx context.Context, url string) error
}

// PropertyCommands are the state-changing listing use-cases. Every method
// takes the caller explicitly; nothing is read from request state.
type PropertyCommands struct {
	repo   repository.PropertyRepository
	images ImageStore
	logger *zap.Logger
	now    func() time.Time
}

func NewPropertyCommands(repo repository.PropertyRepository, images ImageStore, logger *zap.Logger) *PropertyCommands {
	return &PropertyCommands{
		repo:   repo,
		images: images,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// load fetches a listing for a mutation, turning a miss into NotFound.
func (c *PropertyCommands) load(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	p, err := c.repo.GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("property not found")
	}
	return p, nil
}

func (c *PropertyCommands) Create(ctx context.Context, caller permission.Caller, in CreatePropertyInput) (*models.Property, error) {
	if caller.TenantID == uuid.Nil {
		return nil, apperr.Validation("tenant context is required")
	}
	if !signedInWith(caller, permission.PropertyCreate) {
		return nil, apperr.Forbidden("insufficient permissions to create properties")
	}
	if err := validateContent(in.Title, in.Price, in.Type, in.Location, in.Images); err != nil {
		return nil, err
	}

	p, err := c.repo.Create(ctx, caller.TenantID, &models.Property{
		OwnerID:     caller.UserID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Price:       in.Price,
		Images:      in.Images,
		Type:        in.Type,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("property created",
		zap.String("property_id", p.ID.String()),
		zap.String("owner_id", caller.UserID.String()),
		zap.String("tenant_id", caller.TenantID.String()),
	)
	return p, nil
}

// Update applies a partial content edit. Published and disabled listings
// are locked for every caller, property.update.all included.
func (c *PropertyCommands) Update(ctx context.Context, caller permission.Caller, id uuid.UUID, u models.PropertyUpdate) (*models.Property, error) {
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canWrite(p, caller, permission.PropertyUpdateAll, permission.PropertyUpdateOwn) {
		return nil, apperr.Forbidden("insufficient permissions to update this property")
	}

	edited := p.Clone()
	if err := edited.ApplyUpdate(u, c.now()); err != nil {
		return nil, err
	}
	if err := validateContent(edited.Title, edited.Price, edited.Type, edited.Location, edited.Images); err != nil {
		return nil, err
	}

	updated, err := c.repo.Update(ctx, caller.TenantID, edited)
	if err != nil {
		return nil, err
	}
	c.logger.Info("property updated",
		zap.String("property_id", id.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	return updated, nil
}

func (c *PropertyCommands) Delete(ctx context.Context, caller permission.Caller, id uuid.UUID) error {
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if !canWrite(p, caller, permission.PropertyDeleteAll, permission.PropertyDeleteOwn) {
		return apperr.Forbidden("insufficient permissions to delete this property")
	}
	if err := c.repo.SoftDelete(ctx, caller.TenantID, id); err != nil {
		return err
	}
	c.logger.Info("property deleted",
		zap.String("property_id", id.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	return nil
}

// Publish and Archive are owner-only. property.update.all does not extend
// to them.
func (c *PropertyCommands) Publish(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(p.OwnerID) {
		return nil, apperr.Forbidden("only the property owner can publish it")
	}
	if !caller.Can(permission.PropertyPublish) {
		return nil, apperr.Forbidden("insufficient permissions to publish properties")
	}

	published, err := c.repo.Publish(ctx, caller.TenantID, id)
	if err != nil {
		return nil, err
	}
	c.logger.Info("property published", zap.String("property_id", id.String()))
	return published, nil
}

func (c *PropertyCommands) Archive(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(p.OwnerID) {
		return nil, apperr.Forbidden("only the property owner can archive it")
	}
	if !caller.Can(permission.PropertyArchive) {
		return nil, apperr.Forbidden("insufficient permissions to archive properties")
	}

	archived, err := c.repo.Archive(ctx, caller.TenantID, id)
	if err != nil {
		return nil, err
	}
	c.logger.Info("property archived", zap.String("property_id", id.String()))
	return archived, nil
}

// Disable takes a listing out of circulation. Ownership never grants it.
func (c *PropertyCommands) Disable(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	if !caller.Can(permission.PropertyUpdateAll) {
		return nil, apperr.Forbidden("insufficient permissions to disable properties")
	}
	disabled, err := c.repo.Disable(ctx, caller.TenantID, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	c.logger.Info("property disabled",
		zap.String("property_id", id.String()),
		zap.String("disabled_by", caller.UserID.String()),
	)
	return disabled, nil
}

func (c *PropertyCommands) Enable(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	if !caller.Can(permission.PropertyUpdateAll) {
		return nil, apperr.Forbidden("insufficient permissions to enable properties")
	}
	enabled, err := c.repo.Enable(ctx, caller.TenantID, id)
	if err != nil {
		return nil, err
	}
	c.logger.Info("property enabled", zap.String("property_id", id.String()))
	return enabled, nil
}

func (c *PropertyCommands) AddFavorite(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	if !signedInWith(caller, permission.FavoriteCreate) {
		return nil, apperr.Forbidden("insufficient permissions to add favorites")
	}
	return c.repo.AddFavorite(ctx, caller.TenantID, id, caller.UserID)
}

func (c *PropertyCommands) RemoveFavorite(ctx context.Context, caller permission.Caller, id uuid.UUID) (*models.Property, error) {
	if !signedInWith(caller, permission.FavoriteDelete) {
		return nil, apperr.Forbidden("insufficient permissions to remove favorites")
	}
	return c.repo.RemoveFavorite(ctx, caller.TenantID, id, caller.UserID)
}

// RecordView counts an authenticated caller once per published listing.
// Anonymous reads never count.
func (c *PropertyCommands) RecordView(ctx context.Context, caller permission.Caller, id uuid.UUID) (bool, error) {
	if caller.IsAnonymous() {
		return false, nil
	}
	counted, err := c.repo.IncrementViews(ctx, caller.TenantID, id, caller.UserID)
	if err != nil {
		return false, fmt.Errorf("increment views: %w", err)
	}
	return counted, nil
}

// UploadImages stores files and appends their URLs to the listing. If the
// listing cannot be saved afterwards the stored files are removed again.
func (c *PropertyCommands) UploadImages(ctx context.Context, caller permission.Caller, id uuid.UUID, files []models.Upload) ([]string, *models.Property, error) {
	if len(files) == 0 {
		return nil, nil, apperr.Validation("no files uploaded")
	}
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	if !canWrite(p, caller, permission.PropertyUpdateAll, permission.PropertyUpdateOwn) {
		return nil, nil, apperr.Forbidden("insufficient permissions to update this property")
	}
	if err := p.EnsureEditable(); err != nil {
		return nil, nil, err
	}
	if len(p.Images)+len(files) > models.MaxImages {
		return nil, nil, apperr.Validation("a property can have at most %d images", models.MaxImages)
	}

	folder := fmt.Sprintf("tenant-%s/property-%s", caller.TenantID, id)
	urls, err := c.images.Upload(ctx, folder, files)
	if err != nil {
		return nil, nil, err
	}

	images := append(slices.Clone(p.Images), urls...)
	updated, err := c.saveImages(ctx, caller, p, images)
	if err != nil {
		c.discard(ctx, urls)
		return nil, nil, err
	}

	c.logger.Info("property images uploaded",
		zap.String("property_id", id.String()),
		zap.Int("count", len(urls)),
	)
	return urls, updated, nil
}

// DeleteImages detaches urls from the listing, then removes the files.
// URLs the listing does not carry are ignored. A file that fails to delete
// is logged and skipped; the listing is already saved by then.
func (c *PropertyCommands) DeleteImages(ctx context.Context, caller permission.Caller, id uuid.UUID, urls []string) (*models.Property, error) {
	if len(urls) == 0 {
		return nil, apperr.Validation("no image urls given")
	}
	p, err := c.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canWrite(p, caller, permission.PropertyUpdateAll, permission.PropertyUpdateOwn) {
		return nil, apperr.Forbidden("insufficient permissions to update this property")
	}
	if err := p.EnsureEditable(); err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(p.Images))
	var removed []string
	for _, img := range p.Images {
		if slices.Contains(urls, img) {
			removed = append(removed, img)
		} else {
			kept = append(kept, img)
		}
	}
	if len(removed) == 0 {
		return p, nil
	}

	updated, err := c.saveImages(ctx, caller, p, kept)
	if err != nil {
		return nil, err
	}
	c.discard(ctx, removed)
	return updated, nil
}

func (c *PropertyCommands) saveImages(ctx context.Context, caller permission.Caller, p *models.Property, images []string) (*models.Property, error) {
	edited := p.Clone()
	if err := edited.ApplyUpdate(models.PropertyUpdate{Images: images, SetImages: true}, c.now()); err != nil {
		return nil, err
	}
	return c.repo.Update(ctx, caller.TenantID, edited)
}

func (c *PropertyCommands) discard(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := c.images.Delete(ctx, u); err != nil {
			c.logger.Warn("failed to delete image", zap.String("url", u), zap.Error(err))
		}
	}
}
