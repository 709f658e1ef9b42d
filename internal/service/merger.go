package service

import "leadbot/internal/model"

// MergePreferences folds an extraction delta into the current state.
// Non-nil scalars in delta overwrite, nil scalars leave current untouched.
// Feature lists are unioned, first appearance wins, duplicates collapse by exact match.
func MergePreferences(current, delta model.PreferenceState) model.PreferenceState {
	merged := current.Clone()

	if delta.Location != nil {
		merged.Location = model.StringPtr(*delta.Location)
	}
	if delta.MaxPrice != nil {
		merged.MaxPrice = model.Float64Ptr(*delta.MaxPrice)
	}
	if delta.MinBedrooms != nil {
		merged.MinBedrooms = model.IntPtr(*delta.MinBedrooms)
	}
	if delta.MinBathrooms != nil {
		merged.MinBathrooms = model.IntPtr(*delta.MinBathrooms)
	}
	if delta.PropertyType != nil {
		merged.PropertyType = model.StringPtr(*delta.PropertyType)
	}
	if delta.Timeline != nil {
		merged.Timeline = model.StringPtr(*delta.Timeline)
	}
	if delta.IsFirstTimeBuyer != nil {
		v := *delta.IsFirstTimeBuyer
		merged.IsFirstTimeBuyer = &v
	}
	if delta.CurrentSituation != nil {
		merged.CurrentSituation = model.StringPtr(*delta.CurrentSituation)
	}

	merged.MustHaveFeatures = unionOrdered(merged.MustHaveFeatures, delta.MustHaveFeatures)
	merged.NiceToHaveFeatures = unionOrdered(merged.NiceToHaveFeatures, delta.NiceToHaveFeatures)

	return merged
}

// unionOrdered appends the entries of add that are not yet in base
func unionOrdered(base, add []string) []string {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
