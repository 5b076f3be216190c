package services_test

import (
	"context"
	"testing"

	"commerce-api/models"
	"commerce-api/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSearchService(t *testing.T) (*services.SearchService, *gorm.DB) {
	db := newTestDB(t)
	// nil cache: every query hits the database directly.
	return services.NewSearchService(db, nil, testLogger(t)), db
}

func TestSearchProductsFiltersAndFacets(t *testing.T) {
	svc, db := newSearchService(t)
	category := seedCategory(t, db, "Electronics")
	other := seedCategory(t, db, "Books")

	phone := seedProduct(t, db, category.ID, "Smart Phone", 500, 10)
	require.NoError(t, db.Model(phone).Update("brand", "Nokia").Error)
	tablet := seedProduct(t, db, category.ID, "Smart Tablet", 300, 0)
	require.NoError(t, db.Model(tablet).Update("brand", "Nokia").Error)
	seedProduct(t, db, other.ID, "Smart Thinking", 20, 5)

	result, cached, err := svc.SearchProducts(context.Background(), services.SearchQuery{Query: "smart"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, result.Products, 3)
	assert.EqualValues(t, 3, result.Pagination.TotalItems)
	assert.InDelta(t, 20.0, result.Facets.PriceRange.Min, 0.001)
	assert.InDelta(t, 500.0, result.Facets.PriceRange.Max, 0.001)

	// Stock filter drops the tablet, price floor drops the book.
	minPrice := 100.0
	result, _, err = svc.SearchProducts(context.Background(), services.SearchQuery{
		Query:    "smart",
		InStock:  true,
		MinPrice: &minPrice,
	})
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Smart Phone", result.Products[0].Name)
}

func TestSearchProductsSortModes(t *testing.T) {
	svc, db := newSearchService(t)
	category := seedCategory(t, db, "Electronics")
	seedProduct(t, db, category.ID, "Cheap", 10, 5)
	seedProduct(t, db, category.ID, "Mid", 50, 5)
	seedProduct(t, db, category.ID, "Dear", 100, 5)

	result, _, err := svc.SearchProducts(context.Background(), services.SearchQuery{SortBy: "price_low"})
	require.NoError(t, err)
	require.Len(t, result.Products, 3)
	assert.Equal(t, "Cheap", result.Products[0].Name)
	assert.Equal(t, "Dear", result.Products[2].Name)

	result, _, err = svc.SearchProducts(context.Background(), services.SearchQuery{SortBy: "price_high"})
	require.NoError(t, err)
	assert.Equal(t, "Dear", result.Products[0].Name)

	// Unknown sort falls back to newest rather than erroring.
	_, _, err = svc.SearchProducts(context.Background(), services.SearchQuery{SortBy: "sneaky; DROP TABLE"})
	require.NoError(t, err)
}

func TestSuggestionsDedupeAndMinLength(t *testing.T) {
	svc, db := newSearchService(t)
	category := seedCategory(t, db, "Phones")
	p := seedProduct(t, db, category.ID, "Phone X", 100, 5)
	require.NoError(t, db.Model(p).Update("brand", "Phone X").Error)

	// Single character queries return nothing.
	suggestions, err := svc.Suggestions(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	suggestions, err = svc.Suggestions(context.Background(), "phone")
	require.NoError(t, err)
	// Name and brand are identical, so only one entry plus the category.
	assert.ElementsMatch(t, []string{"Phone X", "Phones"}, suggestions)
}

func TestTrackSearchUpsertsAndIgnoresShortQueries(t *testing.T) {
	svc, db := newSearchService(t)

	require.NoError(t, svc.TrackSearch(context.Background(), "  LapTop "))
	require.NoError(t, svc.TrackSearch(context.Background(), "laptop"))
	require.NoError(t, svc.TrackSearch(context.Background(), "ab"))

	var rows []models.SearchHistory
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "laptop", rows[0].Query)
	assert.Equal(t, 2, rows[0].SearchCount)
}

func TestPopularSearchesOrdering(t *testing.T) {
	svc, _ := newSearchService(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.TrackSearch(context.Background(), "headphones"))
	}
	require.NoError(t, svc.TrackSearch(context.Background(), "keyboard"))

	popular, err := svc.PopularSearches(context.Background())
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "headphones", popular[0].Term)
	assert.Equal(t, 3, popular[0].Count)
}

func TestEvictBeyondTopKeepsHighestCounts(t *testing.T) {
	svc, _ := newSearchService(t)

	terms := []string{"alpha", "bravo", "charlie", "delta"}
	for rank, term := range terms {
		for i := 0; i <= rank; i++ {
			require.NoError(t, svc.TrackSearch(context.Background(), term))
		}
	}

	deleted, err := svc.EvictBeyondTop(context.Background(), 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	popular, err := svc.PopularSearches(context.Background())
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "delta", popular[0].Term)
	assert.Equal(t, "charlie", popular[1].Term)

	// Nothing below the cap, so another pass is a no-op.
	deleted, err = svc.EvictBeyondTop(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
