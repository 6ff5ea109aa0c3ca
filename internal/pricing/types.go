package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PropertyType distinguishes newly built properties from resales.
type PropertyType int

const (
	Resale PropertyType = iota + 1
	NewBuild
)

// PropertyTypes lists every supported property type.
func PropertyTypes() []PropertyType {
	return []PropertyType{Resale, NewBuild}
}

// ParsePropertyType accepts the canonical names plus the camel-cased "newBuild" form value.
func ParsePropertyType(s string) (PropertyType, error) {
	switch strings.TrimSpace(s) {
	case "resale":
		return Resale, nil
	case "new_build", "newBuild":
		return NewBuild, nil
	}
	return 0, fmt.Errorf("unknown property type %q", s)
}

// Valid reports whether pt is a supported property type.
func (pt PropertyType) Valid() bool {
	return pt == Resale || pt == NewBuild
}

func (pt PropertyType) String() string {
	switch pt {
	case Resale:
		return "resale"
	case NewBuild:
		return "new_build"
	}
	return fmt.Sprintf("PropertyType(%d)", int(pt))
}

// Label is the human-readable name of the property type.
func (pt PropertyType) Label() string {
	switch pt {
	case Resale:
		return "Resale"
	case NewBuild:
		return "New Build"
	}
	return pt.String()
}

func (pt PropertyType) MarshalJSON() ([]byte, error) {
	if !pt.Valid() {
		return nil, fmt.Errorf("marshal property type: unsupported value %d", int(pt))
	}
	return json.Marshal(pt.String())
}

func (pt *PropertyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePropertyType(s)
	if err != nil {
		return err
	}
	*pt = parsed
	return nil
}

// Region is a Spanish autonomous community the brokerage operates in.
type Region int

const (
	Valencia Region = iota + 1
	Murcia
	Andalusia
)

// Regions lists every supported region in display order.
func Regions() []Region {
	return []Region{Valencia, Murcia, Andalusia}
}

// ParseRegion accepts the canonical lower-case region names.
func ParseRegion(s string) (Region, error) {
	switch strings.TrimSpace(s) {
	case "valencia":
		return Valencia, nil
	case "murcia":
		return Murcia, nil
	case "andalusia":
		return Andalusia, nil
	}
	return 0, fmt.Errorf("unknown region %q", s)
}

// Valid reports whether r is a supported region.
func (r Region) Valid() bool {
	return r >= Valencia && r <= Andalusia
}

func (r Region) String() string {
	switch r {
	case Valencia:
		return "valencia"
	case Murcia:
		return "murcia"
	case Andalusia:
		return "andalusia"
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

// Name is the capitalized region name.
func (r Region) Name() string {
	switch r {
	case Valencia:
		return "Valencia"
	case Murcia:
		return "Murcia"
	case Andalusia:
		return "Andalusia"
	}
	return r.String()
}

// Label is the name shown in the calculator region picker.
func (r Region) Label() string {
	switch r {
	case Valencia:
		return "Valencia (Costa Blanca)"
	case Murcia:
		return "Murcia (Costa Calida)"
	}
	return r.Name()
}

func (r Region) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal region: unsupported value %d", int(r))
	}
	return json.Marshal(r.String())
}

func (r *Region) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRegion(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
