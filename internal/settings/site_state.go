package settings

import "encoding/json"

// AutoFlip is the per-site automatic page-turn state. Active is cleared on
// shutdown so a crash mid-session never leaves the next session stuck in a
// flipping state.
type AutoFlip struct {
	Active    bool `json:"active"`
	Interval  int  `json:"interval"`
	KeepAwake bool `json:"keepAwake"`
}

// SiteState holds the per-site toggles the menu seeds its checkable items
// from. Absent fields default to off.
type SiteState struct {
	ReaderWide  bool     `json:"readerWide"`
	HideToolbar bool     `json:"hideToolbar"`
	HideNavbar  bool     `json:"hideNavbar"`
	AutoFlip    AutoFlip `json:"autoFlip"`
}

func defaultAutoFlip() AutoFlip {
	return AutoFlip{Active: false, Interval: 30, KeepAwake: true}
}

// Sites decodes the per-site state map. Malformed or absent data yields an
// empty map.
func (d Document) Sites() map[string]SiteState {
	out := map[string]SiteState{}
	raw, ok := d["sites"]
	if !ok {
		return out
	}

	var partial map[string]json.RawMessage
	if err := json.Unmarshal(raw, &partial); err != nil {
		return out
	}
	for id, rawSite := range partial {
		state := SiteState{AutoFlip: defaultAutoFlip()}
		if err := json.Unmarshal(rawSite, &state); err != nil {
			state = SiteState{AutoFlip: defaultAutoFlip()}
		}
		out[id] = state
	}
	return out
}

// Site returns the state for one site, zero-valued toggles when absent.
func (d Document) Site(id string) SiteState {
	if state, ok := d.Sites()[id]; ok {
		return state
	}
	return SiteState{AutoFlip: defaultAutoFlip()}
}

// WithSites returns an update document carrying the full sites map and
// nothing else, ready for a whole-key replace write.
func WithSites(sites map[string]SiteState) Document {
	raw, err := json.Marshal(sites)
	if err != nil {
		return Document{}
	}
	return Document{"sites": raw}
}
