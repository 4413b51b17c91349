package core

import (
	"fmt"

	"github.com/you/sol-arb-bot/internal/types"
)

var registry = map[types.DexKind]*Venue{}

func Register(v *Venue) error {
	if err := v.Layout.Validate(); err != nil {
		return fmt.Errorf("venue %s: %w", v.Kind, err)
	}
	registry[v.Kind] = v
	return nil
}

func Get(kind types.DexKind) *Venue { return registry[kind] }

func Enabled(kinds []types.DexKind) []*Venue {
	out := make([]*Venue, 0, len(kinds))
	for _, k := range kinds {
		if v := Get(k); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// All returns every registered venue, used by bulk account scans.
func All() []*Venue {
	out := make([]*Venue, 0, len(registry))
	for _, v := range registry {
		out = append(out, v)
	}
	return out
}
