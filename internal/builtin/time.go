package builtin

import (
	"strings"
	"time"

	"github.com/polywasm/policyhost/internal/value"
)

// TimeGroup registers date/time built-ins. time.now_ns is grounded on
// topdown/time.go's nowKey memoization pattern, reimplemented against the
// per-evaluation Context instead of a global cache keyed off the query.
func TimeGroup(r *Registry) {
	r.Register("time.now_ns", 0, builtinTimeNowNanos)
	r.Register("time.parse_ns", 2, builtinTimeParseNanos)
	r.Register("time.parse_rfc3339_ns", 1, builtinTimeParseRFC3339Nanos)
	r.Register("time.parse_duration_ns", 1, builtinTimeParseDurationNanos)
	r.Register("time.date", 1, builtinTimeDate)
	r.Register("time.clock", 1, builtinTimeClock)
	r.Register("time.weekday", 1, builtinTimeWeekday)
	r.Register("time.add_date", 4, builtinTimeAddDate)
	r.Register("time.diff", 2, builtinTimeDiff)
}

func builtinTimeNowNanos(ctx *Context, _ []value.Value) (value.Value, error) {
	return value.Int(ctx.Now().UnixNano()), nil
}

func builtinTimeParseNanos(_ *Context, args []value.Value) (value.Value, error) {
	format, err := stringArg("time.parse_ns", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	text, err := stringArg("time.parse_ns", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	t, parseErr := time.Parse(format, text)
	if parseErr != nil {
		return value.Value{}, parseErrorf("time.parse_ns", "%s", parseErr)
	}
	return value.Int(t.UnixNano()), nil
}

func builtinTimeParseRFC3339Nanos(_ *Context, args []value.Value) (value.Value, error) {
	text, err := stringArg("time.parse_rfc3339_ns", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	t, parseErr := time.Parse(time.RFC3339, text)
	if parseErr != nil {
		return value.Value{}, parseErrorf("time.parse_rfc3339_ns", "%s", parseErr)
	}
	return value.Int(t.UnixNano()), nil
}

// builtinTimeParseDurationNanos accepts Go duration syntax. Some policy
// fixtures in the wild spell the microsecond suffix as "Âµs" (a UTF-8
// mojibake of "µs" produced by a mis-decoded editor); tolerate it by
// substituting the proper rune before delegating to time.ParseDuration.
func builtinTimeParseDurationNanos(_ *Context, args []value.Value) (value.Value, error) {
	text, err := stringArg("time.parse_duration_ns", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	fixed := strings.ReplaceAll(text, "Âµs", "µs")
	d, parseErr := time.ParseDuration(fixed)
	if parseErr != nil {
		return value.Value{}, parseErrorf("time.parse_duration_ns", "%s", parseErr)
	}
	return value.Int(int64(d)), nil
}

func nsArg(name string, args []value.Value, idx int) (time.Time, error) {
	ns, err := intArg(name, args, idx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ns).UTC(), nil
}

// timestampArg extracts the idx'th argument as a time.Time, accepting both
// forms time.date/time.clock/time.weekday take: a bare integer nanosecond
// timestamp (interpreted in UTC, same as nsArg), or a 2-element [ns, tz]
// sequence naming an IANA zone ("" and "UTC" both mean UTC).
func timestampArg(name string, args []value.Value, idx int) (time.Time, error) {
	if args[idx].Kind() != value.KindArray {
		return nsArg(name, args, idx)
	}
	items := args[idx].Items()
	if len(items) != 2 {
		return time.Time{}, typeErrorf(name, "operand %d: expected a [ns, tz] pair, got %d elements", idx+1, len(items))
	}
	bi, ok := items[0].BigInt()
	if !ok {
		return time.Time{}, typeErrorf(name, "operand %d: [ns, tz] timestamp must be an integer", idx+1)
	}
	if items[1].Kind() != value.KindString {
		return time.Time{}, typeErrorf(name, "operand %d: [ns, tz] zone must be a string", idx+1)
	}
	tz := items[1].Str()
	if tz == "" || tz == "UTC" {
		return time.Unix(0, bi.Int64()).UTC(), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, parseErrorf(name, "unknown time zone %q", tz)
	}
	return time.Unix(0, bi.Int64()).In(loc), nil
}

func builtinTimeDate(_ *Context, args []value.Value) (value.Value, error) {
	t, err := timestampArg("time.date", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	y, m, d := t.Date()
	return value.Array(value.Int(int64(y)), value.Int(int64(m)), value.Int(int64(d))), nil
}

func builtinTimeClock(_ *Context, args []value.Value) (value.Value, error) {
	t, err := timestampArg("time.clock", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	h, m, s := t.Clock()
	return value.Array(value.Int(int64(h)), value.Int(int64(m)), value.Int(int64(s))), nil
}

func builtinTimeWeekday(_ *Context, args []value.Value) (value.Value, error) {
	t, err := timestampArg("time.weekday", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(t.Weekday().String()), nil
}

func builtinTimeAddDate(_ *Context, args []value.Value) (value.Value, error) {
	t, err := nsArg("time.add_date", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	years, err := intArg("time.add_date", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	months, err := intArg("time.add_date", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	days, err := intArg("time.add_date", args, 3)
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(t.AddDate(int(years), int(months), int(days)).UnixNano()), nil
}

func builtinTimeDiff(_ *Context, args []value.Value) (value.Value, error) {
	t1, err := nsArg("time.diff", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	t2, err := nsArg("time.diff", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	h1, mi1, s1 := t1.Clock()
	h2, mi2, s2 := t2.Clock()

	years := y1 - y2
	months := int(m1) - int(m2)
	days := d1 - d2
	hours := h1 - h2
	mins := mi1 - mi2
	secs := s1 - s2

	if secs < 0 {
		secs += 60
		mins--
	}
	if mins < 0 {
		mins += 60
		hours--
	}
	if hours < 0 {
		hours += 24
		days--
	}
	if days < 0 {
		days += daysInMonth(y2, m2)
		months--
	}
	if months < 0 {
		months += 12
		years--
	}
	return value.Array(
		value.Int(int64(years)),
		value.Int(int64(months)),
		value.Int(int64(days)),
		value.Int(int64(hours)),
		value.Int(int64(mins)),
		value.Int(int64(secs)),
	), nil
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}
