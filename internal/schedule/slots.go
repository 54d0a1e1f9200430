package schedule

import (
	"sort"
	"time"
)

// SlotInput is everything needed to compute the open slots of one day.
type SlotInput struct {
	Date     time.Time // calendar day, only year/month/day are read
	Location *time.Location
	Now      time.Time
	Rules    []Rule
	Blocks   []Block
	Booked   []time.Time // start instants of non-canceled appointments
}

// GenerateSlots walks every rule of the day's weekday in SlotMinutes steps.
// A candidate must end inside its rule and survive the past, booked and block
// filters. Overlapping rules yield each instant once, in chronological order.
func GenerateSlots(in SlotInput) []time.Time {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := in.Date.Date()
	weekday := time.Date(y, m, d, 0, 0, 0, 0, loc).Weekday()

	booked := make(map[int64]struct{}, len(in.Booked))
	for _, b := range in.Booked {
		booked[b.UnixMicro()] = struct{}{}
	}

	seen := make(map[int64]struct{})
	slots := []time.Time{}

	for _, rule := range in.Rules {
		if rule.Weekday != weekday || rule.SlotMinutes <= 0 || rule.EndTime <= rule.StartTime {
			continue
		}

		step := time.Duration(rule.SlotMinutes) * time.Minute
		end := rule.EndTime.On(y, m, d, loc)

		for t := rule.StartTime.On(y, m, d, loc); !t.Add(step).After(end); t = t.Add(step) {
			key := t.UnixMicro()
			if t.Before(in.Now) {
				continue
			}
			if _, ok := booked[key]; ok {
				continue
			}
			if blocked(t, in.Blocks) {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			slots = append(slots, t)
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Before(slots[j])
	})

	return slots
}

func blocked(t time.Time, blocks []Block) bool {
	for _, b := range blocks {
		if b.Covers(t) {
			return true
		}
	}
	return false
}

// FormatSlots renders slot instants as "HH:mm" in loc.
func FormatSlots(slots []time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.In(loc).Format("15:04"))
	}
	return out
}
