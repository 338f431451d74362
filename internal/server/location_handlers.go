package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListProvinces handles GET /api/locations/provinces. Upstream failures
// yield an empty list, never an error.
// @Summary List provinces
// @Tags locations
// @Produce json
// @Success 200 {array} location.Node
// @Router /locations/provinces [get]
func (s *Server) ListProvinces(c *fiber.Ctx) error {
	return c.JSON(s.locations.ListProvinces(c.UserContext()))
}

// ListDistricts handles GET /api/locations/provinces/:id/districts
// @Summary List districts
// @Tags locations
// @Produce json
// @Param id path int true "Province ID"
// @Success 200 {array} location.Node
// @Failure 400 {object} models.ErrorResponse
// @Router /locations/provinces/{id}/districts [get]
func (s *Server) ListDistricts(c *fiber.Ctx) error {
	id, err := parseLocationID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.locations.ListDistricts(c.UserContext(), id))
}

// ListNeighborhoods handles GET /api/locations/districts/:id/neighborhoods
// @Summary List neighborhoods
// @Tags locations
// @Produce json
// @Param id path int true "District ID"
// @Success 200 {array} location.Node
// @Failure 400 {object} models.ErrorResponse
// @Router /locations/districts/{id}/neighborhoods [get]
func (s *Server) ListNeighborhoods(c *fiber.Ctx) error {
	id, err := parseLocationID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.locations.ListNeighborhoods(c.UserContext(), id))
}
