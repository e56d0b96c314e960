package lightning

import "github.com/chrissnell/remoteweather-lightning/internal/types"

// KmToMiles converts kilometres to statute miles
const KmToMiles = 0.621371

// Augment writes an interval summary onto an outgoing record. The strike
// count is always written. The average distance is cleared when no strike
// in the interval was ranged, and converted to miles when the record is in US units.
// Records with no unit system set are left in kilometres.
func Augment(rec *types.Reading, s IntervalSummary) {
	rec.LightningStrikes = s.Count

	if s.Count == 0 || s.AvgDistance == nil {
		rec.LightningAvgDistance = nil
		return
	}

	avg := *s.AvgDistance
	if rec.UnitSystem == types.UnitSystemUS {
		avg *= KmToMiles
	}
	rec.LightningAvgDistance = &avg
}
