package standard

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard identifies a document-photo rule set.
type Standard int

// Host-facing ids. Custom keeps the id the mobile client has always sent.
const (
	SaudiEVisa Standard = 0
	US         Standard = 1
	Schengen   Standard = 2
	GeneralID  Standard = 3
	UK         Standard = 4
	India      Standard = 5
	Custom     Standard = 99
)

// Fallback is used for any id or name the registry does not know.
const Fallback = GeneralID

// CropConfig is the output geometry for a standard.
type CropConfig struct {
	TargetWidth    int     `json:"target_width"`
	TargetHeight   int     `json:"target_height"`
	TopMarginRatio float64 `json:"top_margin_ratio"` // share of the frame height given to the face region
}

// Built-in standards.
var configs = map[Standard]CropConfig{
	SaudiEVisa: {TargetWidth: 500, TargetHeight: 500, TopMarginRatio: 0.45},
	US:         {TargetWidth: 600, TargetHeight: 600, TopMarginRatio: 0.45},
	Schengen:   {TargetWidth: 500, TargetHeight: 500, TopMarginRatio: 0.45},
	GeneralID:  {TargetWidth: 450, TargetHeight: 550, TopMarginRatio: 0.45},
	UK:         {TargetWidth: 350, TargetHeight: 450, TopMarginRatio: 0.45},
	India:      {TargetWidth: 350, TargetHeight: 500, TopMarginRatio: 0.45},
	Custom:     {TargetWidth: 500, TargetHeight: 500, TopMarginRatio: 0.45},
}

var names = map[Standard]string{
	SaudiEVisa: "saudi-evisa",
	US:         "us",
	Schengen:   "schengen",
	GeneralID:  "general-id",
	UK:         "uk",
	India:      "india",
	Custom:     "custom",
}

var aliases = map[string]Standard{
	"saudi":       SaudiEVisa,
	"saudi-evisa": SaudiEVisa,
	"evisa":       SaudiEVisa,
	"us":          US,
	"usa":         US,
	"schengen":    Schengen,
	"eu":          Schengen,
	"general-id":  GeneralID,
	"general":     GeneralID,
	"id":          GeneralID,
	"uk":          UK,
	"gb":          UK,
	"india":       India,
	"in":          India,
	"custom":      Custom,
}

// Resolve returns the crop configuration for s. Unknown standards get the
// fallback configuration, so the lookup never fails.
func Resolve(s Standard) CropConfig {
	if c, ok := configs[s]; ok {
		return c
	}
	return configs[Fallback]
}

// FromID maps a host integer id onto a Standard.
func FromID(id int) Standard {
	s := Standard(id)
	if _, ok := configs[s]; ok {
		return s
	}
	return Fallback
}

// Parse accepts a name, alias or numeric id. Falls back to GeneralID if unknown.
func Parse(name string) Standard {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	if s, ok := aliases[key]; ok {
		return s
	}
	if id, err := strconv.Atoi(key); err == nil {
		return FromID(id)
	}
	return Fallback
}

// All returns every registered standard in id order.
func All() []Standard {
	return []Standard{SaudiEVisa, US, Schengen, GeneralID, UK, India, Custom}
}

func (s Standard) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("standard(%d)", int(s))
}

// AspectRatio returns width / height of the target frame.
func (c CropConfig) AspectRatio() float64 {
	return float64(c.TargetWidth) / float64(c.TargetHeight)
}

// FaceRegionHeight is the vertical extent reserved for the face.
func (c CropConfig) FaceRegionHeight() float64 {
	return float64(c.TargetHeight) * c.TopMarginRatio
}
