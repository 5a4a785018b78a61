package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// NewPaginationParams clamps page and limit into range. Oversized limits are
// capped rather than reset.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	switch {
	case limit < constants.MinPageSize:
		limit = constants.DefaultPageSize
	case limit > constants.MaxPageSize:
		limit = constants.MaxPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams reads page and page_size from the query string. limit
// is accepted as an alias of page_size.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))

	size := c.Query("page_size")
	if size == "" {
		size = c.Query("limit")
	}
	limit, _ := strconv.Atoi(size)

	return NewPaginationParams(page, limit)
}
