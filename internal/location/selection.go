package location

import "whereismypet/internal/models"

// Selection is an immutable cascading choice of province, district and
// neighborhood. Every With* method returns a new value; choosing a different
// parent clears everything below it before any child lookup can run.
type Selection struct {
	ProvinceID     int    `json:"province_id,omitempty"`
	Province       string `json:"province,omitempty"`
	DistrictID     int    `json:"district_id,omitempty"`
	District       string `json:"district,omitempty"`
	NeighborhoodID int    `json:"neighborhood_id,omitempty"`
	Neighborhood   string `json:"neighborhood,omitempty"`
	Street         string `json:"street,omitempty"`
}

// WithProvince selects a province and resets the lower levels.
// Re-selecting the current province keeps them.
func (s Selection) WithProvince(n Node) Selection {
	if n.ID == s.ProvinceID && s.ProvinceID != 0 {
		return s
	}
	return Selection{ProvinceID: n.ID, Province: n.Name}
}

// WithDistrict selects a district under the current province and resets the
// neighborhood and street. It is ignored when no province is chosen.
func (s Selection) WithDistrict(n Node) Selection {
	if s.ProvinceID == 0 {
		return s
	}
	if n.ID == s.DistrictID && s.DistrictID != 0 {
		return s
	}
	return Selection{
		ProvinceID: s.ProvinceID,
		Province:   s.Province,
		DistrictID: n.ID,
		District:   n.Name,
	}
}

// WithNeighborhood selects a neighborhood. It is ignored when no district is chosen.
func (s Selection) WithNeighborhood(n Node) Selection {
	if s.DistrictID == 0 {
		return s
	}
	if n.ID == s.NeighborhoodID && s.NeighborhoodID != 0 {
		return s
	}
	s.NeighborhoodID = n.ID
	s.Neighborhood = n.Name
	s.Street = ""
	return s
}

// WithStreet sets the free-text street line.
func (s Selection) WithStreet(street string) Selection {
	s.Street = street
	return s
}

// Location projects the selection onto the stored, id-free address.
func (s Selection) Location() models.Location {
	return models.Location{
		City:         s.Province,
		District:     s.District,
		Neighborhood: s.Neighborhood,
		Street:       s.Street,
	}
}

// Complete reports whether every level and the street are filled in.
func (s Selection) Complete() bool {
	return s.Province != "" && s.District != "" && s.Neighborhood != "" && s.Street != ""
}
