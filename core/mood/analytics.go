package mood

import (
	"math"
	"sort"
	"time"
)

// Trends
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

const (
	trendThreshold     = 0.5
	trendMinCheckins   = 4
	topTriggersLimit   = 5
	defaultWindowDays  = 30
	maxWindowDays      = 365
	streakLookbackDays = 366
)

type (
	LabelCount struct {
		Mood  string  `json:"mood"`
		Count int     `json:"count"`
		Share float64 `json:"share"`
	}

	DailyPoint struct {
		Date    time.Time `json:"date"`
		Count   int       `json:"count"`
		Average float64   `json:"average"`
	}

	TriggerCount struct {
		Trigger string  `json:"trigger"`
		Count   int     `json:"count"`
		Share   float64 `json:"share"`
	}

	Analytics struct {
		From         time.Time      `json:"from"`
		To           time.Time      `json:"to"`
		CheckinCount int            `json:"checkin_count"`
		AverageScore float64        `json:"average_score"`
		Distribution []LabelCount   `json:"distribution"`
		Daily        []DailyPoint   `json:"daily"`
		TopTriggers  []TriggerCount `json:"top_triggers"`
		Trend        string         `json:"trend"`
	}

	StudentAnalytics struct {
		Analytics
		Streak int `json:"streak"`
	}

	// SchoolAnalytics only carries aggregates: no individual check-in ever leaves the service.
	SchoolAnalytics struct {
		Analytics
		Participation int `json:"participation"` // distinct students who checked in
	}
)

// WindowDays clamps a requested analytics window to [1, 365] days, defaulting to 30.
func WindowDays(days int) int {
	switch {
	case days <= 0:
		return defaultWindowDays
	case days > maxWindowDays:
		return maxWindowDays
	}
	return days
}

// BuildAnalytics aggregates daily and trigger stats of the [from, to] window.
func BuildAnalytics(from, to time.Time, daily []DailyStat, trigs []TriggerStat) Analytics {
	an := Analytics{
		From:         from,
		To:           to,
		Distribution: make([]LabelCount, 0, len(Labels)),
		Daily:        make([]DailyPoint, 0),
		TopTriggers:  make([]TriggerCount, 0),
		Trend:        TrendInsufficientData,
	}

	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })

	perLabel := make(map[string]int, len(Labels))
	scoresByDate := make([]int, 0) // every check-in score, oldest first
	var total, sum int
	for _, ds := range daily {
		score := Score(ds.Mood)
		if score == 0 || ds.Count <= 0 {
			continue
		}
		total += ds.Count
		sum += score * ds.Count
		perLabel[ds.Mood] += ds.Count
		for i := 0; i < ds.Count; i++ {
			scoresByDate = append(scoresByDate, score)
		}

		if n := len(an.Daily); n > 0 && an.Daily[n-1].Date.Equal(ds.Date) {
			point := &an.Daily[n-1]
			point.Average = (point.Average*float64(point.Count) + float64(score*ds.Count)) / float64(point.Count+ds.Count)
			point.Count += ds.Count
		} else {
			an.Daily = append(an.Daily, DailyPoint{Date: ds.Date, Count: ds.Count, Average: float64(score)})
		}
	}
	for i := range an.Daily {
		an.Daily[i].Average = round2(an.Daily[i].Average)
	}

	an.CheckinCount = total
	if total > 0 {
		an.AverageScore = round2(float64(sum) / float64(total))
	}
	for _, l := range Labels {
		lc := LabelCount{Mood: l.Value, Count: perLabel[l.Value]}
		if total > 0 {
			lc.Share = round2(float64(lc.Count) / float64(total))
		}
		an.Distribution = append(an.Distribution, lc)
	}

	an.TopTriggers = topTriggers(trigs, total)
	an.Trend = Trend(scoresByDate)
	return an
}

func topTriggers(trigs []TriggerStat, total int) []TriggerCount {
	counts := make([]TriggerCount, 0, len(trigs))
	for _, t := range trigs {
		if t.Count <= 0 {
			continue
		}
		tc := TriggerCount{Trigger: t.Trigger, Count: t.Count}
		if total > 0 {
			tc.Share = round2(float64(t.Count) / float64(total))
		}
		counts = append(counts, tc)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Trigger < counts[j].Trigger
	})
	if len(counts) > topTriggersLimit {
		counts = counts[:topTriggersLimit]
	}
	return counts
}

// Trend compares the average score of the older half of scores (oldest first) with the newer half.
func Trend(scores []int) string {
	n := len(scores)
	if n < trendMinCheckins {
		return TrendInsufficientData
	}
	older, newer := scores[:n/2], scores[n/2:]
	diff := average(newer) - average(older)
	switch {
	case diff >= trendThreshold:
		return TrendImproving
	case diff <= -trendThreshold:
		return TrendDeclining
	}
	return TrendStable
}

// Streak counts the consecutive days with a check-in ending today or yesterday.
// dates are calendar days (UTC midnight), in any order.
func Streak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	days := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		days[d] = true
	}

	day := today
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}
	var streak int
	for days[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
