package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/cache"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
	"golang.org/x/sync/errgroup"
)

const keyPrefix = "catalog:"

func cacheKey(slug string) string {
	return keyPrefix + slug
}

type Service struct {
	db    *sql.DB
	cache cache.Cache
	ttl   time.Duration
}

func NewService(db *sql.DB, c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{db: db, cache: c, ttl: ttl}
}

// Storefront returns the priced catalog for the reseller with slug, from
// cache when possible. Cache failures are logged and fall through to the
// database.
func (s *Service) Storefront(ctx context.Context, slug string) (*Storefront, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	key := cacheKey(slug)

	var cached Storefront
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if found {
		return &cached, nil
	}

	reseller, err := store.GetResellerBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	var (
		products  []models.Product
		overrides []models.ResellerPriceOverride
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = store.ListActiveProducts(gctx, s.db); err != nil {
			return fmt.Errorf("load storefront products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if overrides, err = store.ListOverrides(gctx, s.db, reseller.ID); err != nil {
			return fmt.Errorf("load storefront overrides: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sf := Build(reseller, products, overrides)

	if err := s.cache.Set(ctx, key, sf, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}

	return &sf, nil
}

// Invalidate drops one reseller's cached storefront.
func (s *Service) Invalidate(ctx context.Context, slug string) {
	if err := s.cache.Delete(ctx, cacheKey(slug)); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("catalog cache invalidation failed")
	}
}

// InvalidateAll drops every cached storefront; product changes affect all
// resellers.
func (s *Service) InvalidateAll(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, keyPrefix); err != nil {
		log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

// OrderPlaced drops cached storefronts whose size listings the order may
// have changed. Stock is shared by every reseller, so a sized line item
// invalidates them all.
func (s *Service) OrderPlaced(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		if item.Size != "" {
			s.InvalidateAll(ctx)
			return
		}
	}
}
