// Package catalog serves the public service and category listings and
// their admin-only mutations.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"go.uber.org/zap"
)

const (
	servicesKey   = "services:all"
	categoriesKey = "categories:all"
)

var serviceFields = []string{"title", "price", "category", "description", "duration", "image_url", "is_active"}

// Cache is a best-effort JSON cache in front of the listings.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, val any) error
	Delete(ctx context.Context, keys ...string) error
}

type Catalog struct {
	services   db.Store[models.Service]
	categories db.Store[models.Category]
	cache      Cache
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	// bumped on every invalidation; a read that started under an older
	// generation must not repopulate the cache
	mu  sync.Mutex
	gen map[string]uint64
}

func New(services db.Store[models.Service], categories db.Store[models.Category], cache Cache, logger *zap.Logger) *Catalog {
	return &Catalog{
		services:   services,
		categories: categories,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		newID:      utils.GetUUID,
		gen:        map[string]uint64{},
	}
}

func (c *Catalog) ListServices(ctx context.Context) ([]models.Service, error) {
	var out []models.Service
	if c.cached(ctx, servicesKey, &out) {
		return out, nil
	}
	gen := c.generation(servicesKey)
	out, err := c.services.List(ctx)
	if err != nil {
		return nil, apperr.Dependency("Failed to load services", err)
	}
	c.store(ctx, servicesKey, gen, out)
	return out, nil
}

func (c *Catalog) GetService(ctx context.Context, id string) (*models.Service, error) {
	s, err := c.services.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Dependency("Failed to load service", err)
	}
	return s, nil
}

// CreateService stores a new service authored by subject.
func (c *Catalog) CreateService(ctx context.Context, subject models.Subject, payload map[string]any) (*models.Service, error) {
	title, _ := payload["title"].(string)
	price, hasPrice := payload["price"]
	if title == "" || !hasPrice || price == nil {
		return nil, apperr.Validation("'title' and 'price' are required")
	}
	fields := utils.PickFields(payload, serviceFields...)
	if err := checkServiceTypes(fields); err != nil {
		return nil, err
	}

	svc := models.Service{
		ID:        c.newID(),
		Title:     title,
		Price:     fields["price"].(float64),
		IsActive:  true,
		CreatedBy: subject.ID,
		CreatedAt: utils.NowUTC(c.now()),
	}
	svc.Category, _ = fields["category"].(string)
	svc.Description, _ = fields["description"].(string)
	svc.Duration, _ = fields["duration"].(string)
	svc.ImageURL, _ = fields["image_url"].(string)
	if active, ok := fields["is_active"].(bool); ok {
		svc.IsActive = active
	}

	created, err := c.services.Create(ctx, svc)
	if err != nil {
		return nil, apperr.Dependency("Failed to create service", err)
	}
	c.invalidate(ctx, servicesKey)
	return created, nil
}

// UpdateService applies the allowed fields of payload to service id.
func (c *Catalog) UpdateService(ctx context.Context, id string, payload map[string]any) (*models.Service, error) {
	fields := utils.PickFields(payload, serviceFields...)
	if err := checkServiceTypes(fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return c.GetService(ctx, id)
	}

	updated, err := c.services.Update(ctx, id, fields)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Dependency("Failed to update service", err)
	}
	c.invalidate(ctx, servicesKey)
	return updated, nil
}

func (c *Catalog) DeleteService(ctx context.Context, id string) (bool, error) {
	ok, err := c.services.Delete(ctx, id)
	if err != nil {
		return false, apperr.Dependency("Failed to delete service", err)
	}
	c.invalidate(ctx, servicesKey)
	return ok, nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if c.cached(ctx, categoriesKey, &out) {
		return out, nil
	}
	gen := c.generation(categoriesKey)
	out, err := c.categories.List(ctx)
	if err != nil {
		return nil, apperr.Dependency("Failed to load categories", err)
	}
	c.store(ctx, categoriesKey, gen, out)
	return out, nil
}

func (c *Catalog) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("'name' is required")
	}
	created, err := c.categories.Create(ctx, models.Category{
		ID:        c.newID(),
		Name:      name,
		CreatedAt: utils.NowUTC(c.now()),
	})
	if err != nil {
		return nil, apperr.Dependency("Failed to create category", err)
	}
	c.invalidate(ctx, categoriesKey)
	return created, nil
}

func checkServiceTypes(fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "price":
			if _, ok := v.(float64); !ok {
				return apperr.Validation("'price' must be a number")
			}
		case "is_active":
			if _, ok := v.(bool); !ok {
				return apperr.Validation("'is_active' must be a boolean")
			}
		default:
			if _, ok := v.(string); !ok && v != nil {
				return apperr.Validation("'" + k + "' must be a string")
			}
		}
	}
	return nil
}

func (c *Catalog) cached(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	hit, err := c.cache.GetJSON(ctx, key, dst)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (c *Catalog) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[key]
}

// store caches val read under generation gen, unless key was invalidated
// since.
func (c *Catalog) store(ctx context.Context, key string, gen uint64, val any) {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[key] != gen {
		c.logger.Debug("skipping stale cache fill", zap.String("key", key))
		return
	}
	if err := c.cache.SetJSON(ctx, key, val); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Catalog) invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	c.gen[key]++
	c.mu.Unlock()
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
