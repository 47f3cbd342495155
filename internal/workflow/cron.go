package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

// CronInfo is the parsed form of a Quartz cron expression.
type CronInfo struct {
	Seconds     string
	Minutes     string
	Hours       string
	Day         string
	Month       string
	Weekday     string
	Year        string
	Description string
	// Next is the next fire time in the schedule timezone. It is zero when
	// the expression uses Quartz features the evaluator does not support
	// (L, W, #).
	Next time.Time
}

var quartzParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// InspectCron parses a 6 or 7 field Quartz expression and computes the next
// fire time after now in timezone tz (UTC when tz is empty or unknown).
func InspectCron(expr, tz string, now time.Time) (CronInfo, error) {
	parts := strings.Fields(expr)
	if len(parts) != 6 && len(parts) != 7 {
		return CronInfo{}, fmt.Errorf("invalid cron expression %q: want 6 or 7 fields, got %d", expr, len(parts))
	}

	info := CronInfo{
		Seconds: parts[0],
		Minutes: parts[1],
		Hours:   parts[2],
		Day:     parts[3],
		Month:   parts[4],
		Weekday: parts[5],
	}
	if len(parts) == 7 {
		info.Year = parts[6]
	}
	info.Description = describeCron(info)

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	// Quartz numbers weekdays 1-7 from Sunday; the evaluator uses 0-6.
	fields := append([]string{}, parts[:6]...)
	fields[5] = shiftWeekdays(fields[5])
	sched, err := quartzParser.Parse(strings.Join(fields, " "))
	if err == nil {
		info.Next = sched.Next(now.In(loc))
	}
	return info, nil
}

func describeCron(c CronInfo) string {
	blank := func(f string) bool { return f == "*" || f == "?" }

	switch {
	case c.Minutes == "0" && !blank(c.Hours) && blank(c.Day) && blank(c.Weekday):
		return fmt.Sprintf("Daily at %s:00", c.Hours)
	case blank(c.Day) && !blank(c.Weekday):
		return fmt.Sprintf("Weekly on day %s", c.Weekday)
	case !blank(c.Day) && c.Month == "*":
		return fmt.Sprintf("Monthly on day %s", c.Day)
	default:
		return "Custom schedule"
	}
}

func shiftWeekdays(field string) string {
	var b strings.Builder
	num := ""
	flush := func() {
		if num == "" {
			return
		}
		if n, err := strconv.Atoi(num); err == nil && n >= 1 && n <= 7 {
			b.WriteString(strconv.Itoa(n - 1))
		} else {
			b.WriteString(num)
		}
		num = ""
	}
	for i, r := range field {
		if r >= '0' && r <= '9' {
			// Step values ("*/2") are intervals, not weekdays.
			if num == "" && i > 0 && field[i-1] == '/' {
				b.WriteRune(r)
				continue
			}
			if num == "" && i > 0 && field[i-1] >= '0' && field[i-1] <= '9' {
				b.WriteRune(r)
				continue
			}
			num += string(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
