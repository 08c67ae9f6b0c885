package postgres

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/polisight/vectra/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery_NoFilters(t *testing.T) {
	query, args := buildSearchQuery([]float32{1, 0}, storage.SearchFilters{}, 0.7, 10)

	assert.Contains(t, query, "1 - (content_embedding <=> $1)")
	assert.Contains(t, query, "WHERE is_active")
	assert.Contains(t, query, "ORDER BY content_embedding <=> $1")
	assert.NotContains(t, query, "user_id =")
	assert.NotContains(t, query, "source_type =")

	// vector, threshold, limit
	require.Len(t, args, 3)
	assert.Equal(t, float32(0.7), args[1])
	assert.Equal(t, 10, args[2])
}

func TestBuildSearchQuery_AllFilters(t *testing.T) {
	userID := uuid.New()
	query, args := buildSearchQuery([]float32{1, 0}, storage.SearchFilters{
		UserId:     &userID,
		SourceType: "regulatory_filing",
	}, 0.5, 5)

	assert.Contains(t, query, "AND user_id = $2")
	assert.Contains(t, query, "AND source_type = $3")
	assert.Contains(t, query, ">= $4")
	assert.Contains(t, query, "LIMIT $5")

	require.Len(t, args, 5)
	assert.Equal(t, userID, args[1])
	assert.Equal(t, "regulatory_filing", args[2])
}

func TestBuildSearchQuery_PlaceholdersMatchArgs(t *testing.T) {
	userID := uuid.New()
	query, args := buildSearchQuery([]float32{0.3}, storage.SearchFilters{UserId: &userID}, 0.0, 1)

	for i := range args {
		assert.Contains(t, query, "$"+string(rune('1'+i)))
	}
	assert.False(t, strings.Contains(query, "$6"))
}
