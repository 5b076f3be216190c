package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	searchCachePrefix = "search:"
	searchCacheTTL    = 5 * time.Minute

	// minTrackedQueryLen filters out one and two character noise queries.
	minTrackedQueryLen = 3
)

// SearchQuery carries every supported catalog filter. Zero values mean
// "not filtered".
type SearchQuery struct {
	Query     string   `form:"q"`
	Category  string   `form:"category"`
	Brand     string   `form:"brand"`
	MinPrice  *float64 `form:"min_price"`
	MaxPrice  *float64 `form:"max_price"`
	MinRating *float64 `form:"min_rating"`
	InStock   bool     `form:"in_stock"`
	SortBy    string   `form:"sort_by"`
	Page      int      `form:"page"`
	Limit     int      `form:"limit"`
}

// SearchResult is the cached unit: products plus sidebar facets.
type SearchResult struct {
	Products   []models.Product `json:"products"`
	Facets     SearchFacets     `json:"facets"`
	Pagination utils.Pagination `json:"pagination"`
	Query      string           `json:"query"`
}

type SearchFacets struct {
	Brands     []BrandFacet `json:"brands"`
	PriceRange PriceRange   `json:"price_range"`
}

type BrandFacet struct {
	Brand string `json:"brand"`
	Count int64  `json:"count"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PopularSearch struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// searchSorts is the allow-list of sort modes; anything else falls back to
// newest-first. Column expressions are fixed strings, never caller input.
var searchSorts = map[string]string{
	"price_low":  "price ASC",
	"price_high": "price DESC",
	"rating":     "average_rating DESC",
	"newest":     "created_at DESC",
	"relevance":  "created_at DESC",
}

// SearchService runs catalog search with a short-lived Redis cache in front,
// and maintains the bounded search popularity table.
type SearchService struct {
	db     *gorm.DB
	cache  *redis.Client
	logger *zap.Logger
}

func NewSearchService(db *gorm.DB, cache *redis.Client, logger *zap.Logger) *SearchService {
	return &SearchService{db: db, cache: cache, logger: logger}
}

// SearchProducts executes the filtered catalog query, consulting the cache
// first. Cache failures are logged and degrade to a live query.
func (s *SearchService) SearchProducts(ctx context.Context, q SearchQuery) (*SearchResult, bool, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	cacheKey := s.cacheKey(q)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var result SearchResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return &result, true, nil
			}
			s.logger.Warn("Failed to unmarshal cached search result", zap.String("key", cacheKey))
		}
	}

	result, err := s.runSearch(ctx, q)
	if err != nil {
		return nil, false, apperr.From(err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, searchCacheTTL).Err(); err != nil {
				s.logger.Warn("Failed to cache search result", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	return result, false, nil
}

func (s *SearchService) runSearch(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	base := s.filteredProducts(ctx, q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	order, ok := searchSorts[q.SortBy]
	if !ok {
		order = searchSorts["newest"]
	}

	var products []models.Product
	if err := base.Session(&gorm.Session{}).
		Preload("Category").
		Order(order).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&products).Error; err != nil {
		return nil, err
	}

	facets, err := s.facetsFor(ctx, q)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Products:   products,
		Facets:     *facets,
		Pagination: utils.NewPagination(q.Page, q.Limit, total),
		Query:      q.Query,
	}, nil
}

// filteredProducts builds the shared WHERE clause for results and facets.
func (s *SearchService) filteredProducts(ctx context.Context, q SearchQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	if q.Query != "" {
		like := "%" + q.Query + "%"
		db = db.Where("name LIKE ? OR description LIKE ? OR brand LIKE ?", like, like, like)
	}
	if q.Category != "" {
		db = db.Where("category_id IN (?)",
			s.db.Model(&models.Category{}).Select("id").
				Where("id = ? OR name LIKE ?", q.Category, "%"+q.Category+"%"))
	}
	if q.Brand != "" {
		db = db.Where("brand LIKE ?", "%"+q.Brand+"%")
	}
	if q.MinPrice != nil {
		db = db.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("price <= ?", *q.MaxPrice)
	}
	if q.MinRating != nil {
		db = db.Where("average_rating >= ?", *q.MinRating)
	}
	if q.InStock {
		db = db.Where("stock > 0")
	}
	return db
}

func (s *SearchService) facetsFor(ctx context.Context, q SearchQuery) (*SearchFacets, error) {
	var brands []BrandFacet
	if err := s.filteredProducts(ctx, q).
		Select("brand, COUNT(*) AS count").
		Where("brand <> ''").
		Group("brand").
		Order("count DESC").
		Limit(20).
		Scan(&brands).Error; err != nil {
		return nil, err
	}

	var pr PriceRange
	if err := s.filteredProducts(ctx, q).
		Select("COALESCE(MIN(price), 0) AS min, COALESCE(MAX(price), 0) AS max").
		Scan(&pr).Error; err != nil {
		return nil, err
	}

	return &SearchFacets{Brands: brands, PriceRange: pr}, nil
}

func (s *SearchService) cacheKey(q SearchQuery) string {
	min, max, rating := "", "", ""
	if q.MinPrice != nil {
		min = fmt.Sprintf("%g", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		max = fmt.Sprintf("%g", *q.MaxPrice)
	}
	if q.MinRating != nil {
		rating = fmt.Sprintf("%g", *q.MinRating)
	}
	return fmt.Sprintf("%sq:%s:c:%s:b:%s:min:%s:max:%s:r:%s:st:%t:s:%s:p:%d:l:%d",
		searchCachePrefix, strings.ToLower(q.Query), q.Category, q.Brand,
		min, max, rating, q.InStock, q.SortBy, q.Page, q.Limit)
}

// Suggestions returns up to ten deduplicated completions drawn from product
// names, brands, and category names.
func (s *SearchService) Suggestions(ctx context.Context, query string) ([]string, error) {
	if len(query) < 2 {
		return []string{}, nil
	}
	like := "%" + query + "%"

	var products []models.Product
	if err := s.db.WithContext(ctx).
		Select("name, brand").
		Where("is_active = ? AND (name LIKE ? OR brand LIKE ?)", true, like, like).
		Limit(8).
		Find(&products).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Select("name").
		Where("is_active = ? AND name LIKE ?", true, like).
		Limit(5).
		Find(&categories).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	seen := make(map[string]bool)
	suggestions := make([]string, 0, 10)
	add := func(v string) {
		if v == "" || seen[v] || len(suggestions) >= 10 {
			return
		}
		seen[v] = true
		suggestions = append(suggestions, v)
	}
	for _, p := range products {
		add(p.Name)
	}
	for _, p := range products {
		add(p.Brand)
	}
	for _, c := range categories {
		add(c.Name)
	}
	return suggestions, nil
}

// TrackSearch upserts the normalized query, incrementing its counter. Short
// queries are ignored.
func (s *SearchService) TrackSearch(ctx context.Context, query string) error {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if len(normalized) < minTrackedQueryLen {
		return nil
	}

	entry := models.SearchHistory{
		Query:          normalized,
		SearchCount:    1,
		LastSearchedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "query"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"search_count":     gorm.Expr("search_count + 1"),
			"last_searched_at": time.Now(),
		}),
	}).Create(&entry).Error
	if err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}

// PopularSearches returns the top ten queries by count.
func (s *SearchService) PopularSearches(ctx context.Context) ([]PopularSearch, error) {
	var rows []models.SearchHistory
	if err := s.db.WithContext(ctx).
		Order("search_count DESC, last_searched_at DESC").
		Limit(10).
		Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	searches := make([]PopularSearch, 0, len(rows))
	for _, row := range rows {
		searches = append(searches, PopularSearch{Term: row.Query, Count: row.SearchCount})
	}
	return searches, nil
}

// EvictBeyondTop deletes every search history row ranked below the given cap,
// keeping the table bounded.
func (s *SearchService) EvictBeyondTop(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, apperr.WithMessage(apperr.ErrBadRequest, "Keep count must be positive")
	}

	keepIDs := s.db.Model(&models.SearchHistory{}).
		Select("id").
		Order("search_count DESC, last_searched_at DESC").
		Limit(keep)

	res := s.db.WithContext(ctx).
		Where("id NOT IN (?)", keepIDs).
		Delete(&models.SearchHistory{})
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}
