package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow はポリシーの適用時間帯。
// 曜日集合が空の場合は毎日。[Start, End] は両端を含む0時からの秒数で、
// Start > End の場合は日付をまたぐ。End "17:00" は17:00:00まで含み、17:00:01以降は含まない。
type TimeWindow struct {
	Days     [7]bool
	allDays  bool
	Start    int
	End      int
	Location *time.Location
}

// Contains は指定時刻がウィンドウ内かを判定する。
// 曜日は設定タイムゾーンでの当日の曜日で判定する。
func (w *TimeWindow) Contains(now time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if !w.allDays && !w.Days[local.Weekday()] {
		return false
	}

	sec := secondOfDay(local)
	if w.Start <= w.End {
		return sec >= w.Start && sec <= w.End
	}
	return sec >= w.Start || sec <= w.End
}

// lastSecondOfDay は23:59:59
const lastSecondOfDay = 24*60*60 - 1

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseWeekday は曜日名（英語の完全形・3文字略称）または0(日)〜6(土)の数値を解釈する。
func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("invalid day of week %q", s)
	}
	return time.Weekday(n), nil
}

// parseClock は "HH:MM" または "HH:MM:SS" を0時からの秒数に変換する。
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"15:04", "15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return secondOfDay(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}
