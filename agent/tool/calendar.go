package tool

import (
	"context"
	"fmt"
	"sort"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

const (
	defaultEventMinutes = 60
	conflictPadding     = 30 * time.Minute
	workDayStartHour    = 8
	workDayEndHour      = 18
	slotStride          = 30 * time.Minute
	defaultMaxResults   = 10
	timeLayoutMinute    = "2006-01-02 15:04"
	dateLayout          = "2006-01-02"
)

// periodRange resolves a named period to a half-open [start, end) window in
// the configured location. Week starts on Monday.
func periodRange(deps Deps, period string) (time.Time, time.Time, error) {
	now := deps.now().In(deps.location())
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case "today", "":
		return midnight, midnight.AddDate(0, 0, 1), nil
	case "week":
		weekday := int(midnight.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := midnight.AddDate(0, 0, 1-weekday)
		return start, start.AddDate(0, 0, 7), nil
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q, expected 'today', 'week' or 'month'", period)
	}
}

func executeCalendarEvents(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	start, end, err := periodRange(deps, argString(args, "period"))
	if err != nil {
		return errResult(tool, "%v", err), nil
	}
	maxResults := argInt(args, "max_results", defaultMaxResults)
	if maxResults < 1 {
		maxResults = defaultMaxResults
	}

	events, err := deps.Calendar.Events(ctx, start, end, maxResults)
	if err != nil {
		return errResult(tool, "listing events: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"period": argString(args, "period"),
			"count":  len(events),
			"events": events,
		},
	}, nil
}

func executeCalendarSchedule(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	title := argString(args, "title")
	if title == "" {
		return errResult(tool, "'title' is required"), nil
	}
	start, err := time.ParseInLocation(timeLayoutMinute, argString(args, "start"), deps.location())
	if err != nil {
		return errResult(tool, "invalid 'start', expected YYYY-MM-DD HH:MM"), nil
	}
	duration := time.Duration(argInt(args, "duration_minutes", defaultEventMinutes)) * time.Minute
	if duration <= 0 {
		duration = defaultEventMinutes * time.Minute
	}
	end := start.Add(duration)

	// Look for neighbors in a padded window so back-to-back meetings count
	// as conflicts too.
	neighbors, err := deps.Calendar.Events(ctx, start.Add(-conflictPadding), end.Add(conflictPadding), 50)
	if err != nil {
		return errResult(tool, "checking for conflicts: %v", err), nil
	}
	if conflicts := overlapping(neighbors, start.Add(-conflictPadding), end.Add(conflictPadding)); len(conflicts) > 0 {
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"scheduled": false,
				"conflicts": conflicts,
			},
		}, nil
	}

	created, err := deps.Calendar.CreateEvent(ctx, contractx.EventInput{
		Summary:     title,
		Start:       start,
		End:         end,
		Description: argString(args, "description"),
		Location:    argString(args, "location"),
	})
	if err != nil {
		return errResult(tool, "creating event: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"scheduled": true,
			"event":     created,
		},
	}, nil
}

func executeCalendarReschedule(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	id := argString(args, "event_id")
	if id == "" {
		return errResult(tool, "'event_id' is required"), nil
	}
	title := argString(args, "title")
	if title == "" {
		return errResult(tool, "'title' is required"), nil
	}
	start, err := time.ParseInLocation(timeLayoutMinute, argString(args, "start"), deps.location())
	if err != nil {
		return errResult(tool, "invalid 'start', expected YYYY-MM-DD HH:MM"), nil
	}
	duration := time.Duration(argInt(args, "duration_minutes", defaultEventMinutes)) * time.Minute
	if duration <= 0 {
		duration = defaultEventMinutes * time.Minute
	}
	end := start.Add(duration)

	neighbors, err := deps.Calendar.Events(ctx, start.Add(-conflictPadding), end.Add(conflictPadding), 50)
	if err != nil {
		return errResult(tool, "checking for conflicts: %v", err), nil
	}
	// the event being moved does not conflict with itself
	others := neighbors[:0:0]
	for _, ev := range neighbors {
		if ev.ID != id {
			others = append(others, ev)
		}
	}
	if conflicts := overlapping(others, start.Add(-conflictPadding), end.Add(conflictPadding)); len(conflicts) > 0 {
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"rescheduled": false,
				"conflicts":   conflicts,
			},
		}, nil
	}

	updated, err := deps.Calendar.UpdateEvent(ctx, id, contractx.EventInput{
		Summary: title,
		Start:   start,
		End:     end,
	})
	if err != nil {
		return errResult(tool, "updating event: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"rescheduled": true,
			"event":       updated,
		},
	}, nil
}

func executeCalendarCancel(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	id := argString(args, "event_id")
	if id == "" {
		return errResult(tool, "'event_id' is required"), nil
	}
	if err := deps.Calendar.DeleteEvent(ctx, id); err != nil {
		return errResult(tool, "cancelling event: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"cancelled": true,
			"event_id":  id,
		},
	}, nil
}

func executeCalendarFreeSlots(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	day, err := time.ParseInLocation(dateLayout, argString(args, "date"), deps.location())
	if err != nil {
		return errResult(tool, "invalid 'date', expected YYYY-MM-DD"), nil
	}
	need := time.Duration(argInt(args, "duration_minutes", 30)) * time.Minute
	if need <= 0 {
		need = 30 * time.Minute
	}

	dayStart := day.Add(workDayStartHour * time.Hour)
	dayEnd := day.Add(workDayEndHour * time.Hour)
	events, err := deps.Calendar.Events(ctx, dayStart, dayEnd, 100)
	if err != nil {
		return errResult(tool, "listing events: %v", err), nil
	}

	slots := freeSlots(events, dayStart, dayEnd, need)
	formatted := make([]string, 0, len(slots))
	for _, s := range slots {
		formatted = append(formatted, fmt.Sprintf("%s - %s", s.start.Format("15:04"), s.end.Format("15:04")))
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"date":  day.Format(dateLayout),
			"slots": formatted,
		},
	}, nil
}

func executeCalendarSummary(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Calendar == nil {
		return errResult(tool, "calendar client is not configured"), nil
	}
	period := argString(args, "period")
	start, end, err := periodRange(deps, period)
	if err != nil {
		return errResult(tool, "%v", err), nil
	}
	events, err := deps.Calendar.Events(ctx, start, end, 250)
	if err != nil {
		return errResult(tool, "listing events: %v", err), nil
	}

	var busy time.Duration
	byDay := map[string]int{}
	for _, ev := range events {
		busy += ev.End.Sub(ev.Start)
		byDay[ev.Start.In(deps.location()).Format(dateLayout)]++
	}
	total := end.Sub(start)
	pct := 0.0
	if total > 0 {
		pct = busy.Hours() / total.Hours() * 100
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"period":        period,
			"event_count":   len(events),
			"busy_hours":    round1(busy.Hours()),
			"busy_percent":  round1(pct),
			"events_by_day": byDay,
		},
	}, nil
}

type slot struct {
	start, end time.Time
}

// freeSlots walks the day in fixed strides and keeps every gap of at least
// `need` between sorted events. Events outside [dayStart, dayEnd) are clamped.
func freeSlots(events []contractx.CalendarEvent, dayStart, dayEnd time.Time, need time.Duration) []slot {
	sorted := make([]contractx.CalendarEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var out []slot
	cursor := dayStart
	for _, ev := range sorted {
		evStart, evEnd := ev.Start, ev.End
		if evEnd.Before(dayStart) || !evStart.Before(dayEnd) {
			continue
		}
		if evStart.Before(dayStart) {
			evStart = dayStart
		}
		if evStart.After(cursor) {
			out = append(out, splitGap(cursor, evStart, need)...)
		}
		if evEnd.After(cursor) {
			cursor = evEnd
		}
	}
	if cursor.Before(dayEnd) {
		out = append(out, splitGap(cursor, dayEnd, need)...)
	}
	return out
}

func splitGap(from, to time.Time, need time.Duration) []slot {
	var out []slot
	for cur := from.Round(0); !cur.Add(need).After(to); cur = cur.Add(slotStride) {
		out = append(out, slot{start: cur, end: cur.Add(need)})
	}
	return out
}

func overlapping(events []contractx.CalendarEvent, start, end time.Time) []contractx.CalendarEvent {
	var out []contractx.CalendarEvent
	for _, ev := range events {
		if ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
