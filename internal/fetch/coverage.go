package fetch

import "time"

const dayLayout = "2006-01-02"

// VerifyCoverage returns the calendar days in [first, last], evaluated in loc,
// on which none of times fall.
func VerifyCoverage(times []time.Time, first, last time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	have := make(map[string]struct{}, len(times))
	for _, t := range times {
		have[t.In(loc).Format(dayLayout)] = struct{}{}
	}
	var missing []time.Time
	for d := midnight(first, loc); !d.After(last); d = d.AddDate(0, 0, 1) {
		if _, ok := have[d.Format(dayLayout)]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// uncovered keeps the missing days whose start lies inside an omitted window.
func uncovered(missing []time.Time, omissions []Omission) []time.Time {
	var out []time.Time
	for _, d := range missing {
		for _, o := range omissions {
			if !d.Before(midnight(o.Window.Start, d.Location())) && !d.After(o.Window.End) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
