package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/hoko/internal/catalog"
)

type CatalogResponse struct {
	Categories []catalog.Option `json:"categories"`
	Units      []catalog.Option `json:"units"`
	Fragrances []string         `json:"fragrances"`
}

// Catalog serves the fixed form lists.
func Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, CatalogResponse{
		Categories: catalog.Categories,
		Units:      catalog.Units,
		Fragrances: catalog.Fragrances,
	})
}
