package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ParseFromRequest reads limit and offset from the query. A page parameter
// is accepted in place of offset. Limit is clamped to [1, maxLimit].
func ParseFromRequest(c *fiber.Ctx, defaultLimit, maxLimit int) Pagination {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 1 && c.Query("offset") == "" {
		offset = (page - 1) * limit
	}

	return Pagination{Limit: limit, Offset: offset}
}

// Response creates a standardized pagination response
func Response(p Pagination, count int, data interface{}) fiber.Map {
	p.Count = count
	return fiber.Map{
		"data": data,
		"meta": p,
	}
}
