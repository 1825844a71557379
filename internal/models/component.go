package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical component types used by the compatibility rules.
const (
	TypeCPU         = "CPU"
	TypeMotherboard = "Motherboard"
	TypeRAM         = "RAM"
	TypeGPU         = "GPU"
	TypePSU         = "PSU"
	TypeCase        = "Case"
	TypeStorage     = "Storage"
)

var typeAliases = map[string]string{
	"cpu":           TypeCPU,
	"processor":     TypeCPU,
	"motherboard":   TypeMotherboard,
	"mainboard":     TypeMotherboard,
	"ram":           TypeRAM,
	"memory":        TypeRAM,
	"gpu":           TypeGPU,
	"graphics card": TypeGPU,
	"psu":           TypePSU,
	"power supply":  TypePSU,
	"case":          TypeCase,
	"pc case":       TypeCase,
	"storage":       TypeStorage,
}

// Component is a catalog part. Specs is free-form; the fields the compatibility
// rules care about are read through the accessor methods below.
type Component struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Type      string                 `bson:"type" json:"type"`
	Brand     string                 `bson:"brand" json:"brand"`
	ModelName string                 `bson:"modelName" json:"modelName"`
	ModelKey  string                 `bson:"modelKey" json:"-"`
	Socket    string                 `bson:"socket,omitempty" json:"socket,omitempty"`
	Price     float64                `bson:"price" json:"price"`
	Specs     map[string]interface{} `bson:"specs" json:"specs"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}

// NormalizeModelName trims surrounding whitespace from a model name.
func NormalizeModelName(name string) string {
	return strings.TrimSpace(name)
}

// ModelKeyOf returns the natural-key form of a model name: lower-cased with
// whitespace collapsed, so " Ryzen 5  5600X" and "ryzen 5 5600x" collide.
func ModelKeyOf(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CanonicalType maps a free-form type label onto one of the Type* constants.
// Unknown labels are returned trimmed but otherwise unchanged.
func CanonicalType(t string) string {
	trimmed := strings.TrimSpace(t)
	if canonical, ok := typeAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Normalize fills the derived fields before a component is persisted.
func (c *Component) Normalize() {
	c.ModelName = NormalizeModelName(c.ModelName)
	c.ModelKey = ModelKeyOf(c.ModelName)
	c.Type = strings.TrimSpace(c.Type)
	if c.Specs == nil {
		c.Specs = map[string]interface{}{}
	}
}

// Kind returns the canonical component type.
func (c Component) Kind() string { return CanonicalType(c.Type) }

// Model returns the display model name.
func (c Component) Model() string { return c.ModelName }

// SocketName reads the dedicated socket field, falling back to specs.socket.
func (c Component) SocketName() string {
	if s := strings.TrimSpace(c.Socket); s != "" {
		return s
	}
	return specString(c.Specs, "socket")
}

// MemoryType returns specs.memoryType verbatim.
func (c Component) MemoryType() string { return specString(c.Specs, "memoryType") }

// FormFactor returns specs.formFactor verbatim.
func (c Component) FormFactor() string { return specString(c.Specs, "formFactor") }

// ConnectionType returns specs.connectionType verbatim.
func (c Component) ConnectionType() string { return specString(c.Specs, "connectionType") }

// Wattage returns specs.wattage, 0 when missing or not numeric.
func (c Component) Wattage() float64 { return specNumber(c.Specs, "wattage") }

// PowerDraw returns specs.powerDraw, falling back to specs.tdp.
func (c Component) PowerDraw() float64 {
	if _, ok := c.Specs["powerDraw"]; ok {
		return specNumber(c.Specs, "powerDraw")
	}
	return specNumber(c.Specs, "tdp")
}

// SATAPorts returns specs.sataPorts, 0 when unspecified.
func (c Component) SATAPorts() int { return int(specNumber(c.Specs, "sataPorts")) }

// NVMeSlots returns specs.nvmeSlots, 0 when unspecified.
func (c Component) NVMeSlots() int { return int(specNumber(c.Specs, "nvmeSlots")) }

// ComponentFilter is the structural query used for catalog reads. Its JSON
// encoding is the cache key, so field order here is part of the key format.
type ComponentFilter struct {
	Type       string   `bson:"type,omitempty" json:"type,omitempty"`
	Brand      string   `bson:"brand,omitempty" json:"brand,omitempty"`
	ModelName  string   `bson:"modelName,omitempty" json:"modelName,omitempty"`
	ModelNames []string `bson:"modelNames,omitempty" json:"modelNames,omitempty"`
	PriceMin   *float64 `bson:"priceMin,omitempty" json:"priceMin,omitempty"`
	PriceMax   *float64 `bson:"priceMax,omitempty" json:"priceMax,omitempty"`
}

// CacheKey returns a stable string for structurally identical filters.
func (f ComponentFilter) CacheKey() string {
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(data)
}

// Matches reports whether c satisfies the filter. Drivers without a native
// query language use it directly.
func (f ComponentFilter) Matches(c Component) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Brand != "" && c.Brand != f.Brand {
		return false
	}
	if f.ModelName != "" && c.ModelKey != ModelKeyOf(f.ModelName) {
		return false
	}
	if len(f.ModelNames) > 0 {
		found := false
		for _, name := range f.ModelNames {
			if c.ModelKey == ModelKeyOf(name) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PriceMin != nil && c.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && c.Price > *f.PriceMax {
		return false
	}
	return true
}

// ComponentPatch is a partial update; nil fields are left untouched.
type ComponentPatch struct {
	Type      *string                `json:"type,omitempty"`
	Brand     *string                `json:"brand,omitempty"`
	ModelName *string                `json:"modelName,omitempty"`
	Socket    *string                `json:"socket,omitempty"`
	Price     *float64               `json:"price,omitempty"`
	Specs     map[string]interface{} `json:"specs,omitempty"`
}

// Apply writes the patch onto c and refreshes derived fields.
func (p ComponentPatch) Apply(c *Component) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Brand != nil {
		c.Brand = *p.Brand
	}
	if p.ModelName != nil {
		c.ModelName = *p.ModelName
	}
	if p.Socket != nil {
		c.Socket = *p.Socket
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Specs != nil {
		c.Specs = p.Specs
	}
	c.Normalize()
}

// IsEmpty reports whether the patch changes nothing.
func (p ComponentPatch) IsEmpty() bool {
	return p.Type == nil && p.Brand == nil && p.ModelName == nil &&
		p.Socket == nil && p.Price == nil && p.Specs == nil
}
