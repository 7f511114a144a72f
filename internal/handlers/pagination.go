package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// parsePagination reads ?page and ?limit, defaulting to the first page of
// defaultPageLimit entries. limit is capped at maxPageLimit.
func parsePagination(c *fiber.Ctx) (int, int, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, &models.ValidationError{Field: "page", Message: "page must be a positive integer"}
		}
		page = parsed
	}

	limit := defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, &models.ValidationError{Field: "limit", Message: "limit must be a positive integer"}
		}
		limit = parsed
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, nil
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
