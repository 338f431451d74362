package location

import (
	"context"
	"fmt"

	"whereismypet/internal/models"
)

// Lister is the read side of the directory.
type Lister interface {
	ListProvinces(ctx context.Context) []Node
	ListDistricts(ctx context.Context, provinceID int) []Node
	ListNeighborhoods(ctx context.Context, districtID int) []Node
}

// IDs names a place by directory ids. Zero means the level was not chosen.
type IDs struct {
	ProvinceID     int `json:"province_id"`
	DistrictID     int `json:"district_id"`
	NeighborhoodID int `json:"neighborhood_id"`
}

// Empty reports whether no level was chosen.
func (ids IDs) Empty() bool {
	return ids.ProvinceID == 0 && ids.DistrictID == 0 && ids.NeighborhoodID == 0
}

// Resolve walks the directory from the province down and returns the
// selection the ids describe. Each level is looked up under the parent
// already chosen, so a district from another province is rejected.
func Resolve(ctx context.Context, dir Lister, ids IDs, street string) (Selection, error) {
	var sel Selection
	switch {
	case ids.ProvinceID <= 0:
		return sel, models.NewValidationError("location.province_id is required")
	case ids.DistrictID <= 0 && ids.NeighborhoodID != 0:
		return sel, models.NewValidationError("location.district_id is required when location.neighborhood_id is set")
	}

	province, ok := findNode(dir.ListProvinces(ctx), ids.ProvinceID)
	if !ok {
		return sel, unknownNode(LevelProvince, ids.ProvinceID)
	}
	sel = sel.WithProvince(province)

	if ids.DistrictID > 0 {
		district, ok := findNode(dir.ListDistricts(ctx, sel.ProvinceID), ids.DistrictID)
		if !ok {
			return Selection{}, unknownNode(LevelDistrict, ids.DistrictID)
		}
		sel = sel.WithDistrict(district)
	}

	if ids.NeighborhoodID > 0 {
		neighborhood, ok := findNode(dir.ListNeighborhoods(ctx, sel.DistrictID), ids.NeighborhoodID)
		if !ok {
			return Selection{}, unknownNode(LevelNeighborhood, ids.NeighborhoodID)
		}
		sel = sel.WithNeighborhood(neighborhood)
	}

	return sel.WithStreet(street), nil
}

func findNode(nodes []Node, id int) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func unknownNode(level Level, id int) error {
	return models.NewValidationError(fmt.Sprintf("unknown %s %d", level, id))
}
