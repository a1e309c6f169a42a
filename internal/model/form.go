package model

import (
	"strings"
	"time"
)

// Sector is the closed set of industry sectors that own a suggestion catalog
type Sector string

const (
	SectorIndustrial   Sector = "industrial"
	SectorAgricultural Sector = "agricultural"
	SectorCommercial   Sector = "commercial"
	SectorServices     Sector = "services"
	SectorUnrecognized Sector = "unrecognized"
)

// Sectors lists the recognized sectors in catalog order
var Sectors = []Sector{SectorIndustrial, SectorAgricultural, SectorCommercial, SectorServices}

// ParseSector maps sector keys and legacy category names to a Sector
func ParseSector(name string) Sector {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "industrial", "industria":
		return SectorIndustrial
	case "agricultural", "agropecuario", "agro":
		return SectorAgricultural
	case "commercial", "comercial":
		return SectorCommercial
	case "services", "servicios":
		return SectorServices
	default:
		return SectorUnrecognized
	}
}

// Recognized reports whether the sector has its own catalog
func (s Sector) Recognized() bool {
	for _, known := range Sectors {
		if s == known {
			return true
		}
	}
	return false
}

// Policy decides how malformed configuration degrades
type Policy string

const (
	// PolicyFailOpen shows questions with unknown operators and uses the
	// generic catalog for unrecognized sectors
	PolicyFailOpen Policy = "fail_open"
	// PolicyFailClosed hides questions with unknown operators and rejects
	// unrecognized sectors
	PolicyFailClosed Policy = "fail_closed"
)

// ParsePolicy defaults to PolicyFailOpen for anything but "fail_closed"
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), string(PolicyFailClosed)) {
		return PolicyFailClosed
	}
	return PolicyFailOpen
}

// Category is an industry category that groups forms
type Category struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Sector      Sector    `json:"sector" bson:"sector"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string    `json:"icon,omitempty" bson:"icon,omitempty"`
	Color       string    `json:"color,omitempty" bson:"color,omitempty"`
	Active      bool      `json:"active" bson:"active"`
	Order       int       `json:"order" bson:"order"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Form is a named, ordered collection of questions for one category
type Form struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	CategoryID       string    `json:"categoryId" bson:"categoryId"`
	Name             string    `json:"name" bson:"name"`
	Description      string    `json:"description,omitempty" bson:"description,omitempty"`
	Active           bool      `json:"active" bson:"active"`
	Order            int       `json:"order" bson:"order"`
	EstimatedMinutes int       `json:"estimatedMinutes,omitempty" bson:"estimatedMinutes,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt"`
}
