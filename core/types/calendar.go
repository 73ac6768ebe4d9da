package types

import "time"

// Calendar pairs base-year and future-year dates hour by hour. The paired
// span covers the shorter of the two years, so a leap day present in only
// one year is dropped and both years walk the same number of hours.
type Calendar struct {
	BaseYear   int
	FutureYear int

	hours     int
	baseStart time.Time
	futStart  time.Time

	ozoneStartHour int
	ozoneEndHour   int
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInYear(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

// NewCalendar builds the paired calendar for a scenario. Ozone bounds are
// "MM-DD" strings applied to both years.
func NewCalendar(baseYear, futureYear int, ozoneStart, ozoneEnd string) (*Calendar, error) {
	days := daysInYear(baseYear)
	if d := daysInYear(futureYear); d < days {
		days = d
	}
	c := &Calendar{
		BaseYear:   baseYear,
		FutureYear: futureYear,
		hours:      days * 24,
		baseStart:  time.Date(baseYear, 1, 1, 0, 0, 0, 0, time.UTC),
		futStart:   time.Date(futureYear, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	start, err := time.Parse("2006-01-02", time.Date(baseYear, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")+"-"+ozoneStart)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse("2006-01-02", time.Date(baseYear, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")+"-"+ozoneEnd)
	if err != nil {
		return nil, err
	}
	c.ozoneStartHour = int(start.Sub(c.baseStart).Hours()) + 1
	c.ozoneEndHour = int(end.Sub(c.baseStart).Hours()) + 24
	if c.ozoneEndHour > c.hours {
		c.ozoneEndHour = c.hours
	}
	return c, nil
}

// Hours returns the number of paired calendar hours in the run
func (c *Calendar) Hours() int {
	return c.hours
}

// BaseDate returns the base-year date containing a 1-based calendar hour
func (c *Calendar) BaseDate(hour int) time.Time {
	return c.baseStart.AddDate(0, 0, (hour-1)/24)
}

// FutureDate returns the future-year date containing a 1-based calendar hour
func (c *Calendar) FutureDate(hour int) time.Time {
	return c.futStart.AddDate(0, 0, (hour-1)/24)
}

// HourOfDay returns the 0-23 hour of day for a 1-based calendar hour
func (c *Calendar) HourOfDay(hour int) int {
	return (hour - 1) % 24
}

// InOzoneSeason reports whether a calendar hour falls inside the ozone window
func (c *Calendar) InOzoneSeason(hour int) bool {
	return hour >= c.ozoneStartHour && hour <= c.ozoneEndHour
}

// OzoneWindow returns the first and last ozone-season calendar hours
func (c *Calendar) OzoneWindow() (int, int) {
	return c.ozoneStartHour, c.ozoneEndHour
}

// DayAfterBase returns January 1 of the year after the base year, the
// earliest date a future control override can credibly start.
func (c *Calendar) DayAfterBase() time.Time {
	return time.Date(c.BaseYear+1, 1, 1, 0, 0, 0, 0, time.UTC)
}

// FirstFutureDay returns January 1 of the future year
func (c *Calendar) FirstFutureDay() time.Time {
	return c.futStart
}

// DayAfterFuture returns January 1 of the year after the future year
func (c *Calendar) DayAfterFuture() time.Time {
	return time.Date(c.FutureYear+1, 1, 1, 0, 0, 0, 0, time.UTC)
}

// Month returns the 1-based month of a calendar hour in the future year
func (c *Calendar) Month(hour int) int {
	return int(c.FutureDate(hour).Month())
}

// Quarter returns the 1-based quarter of a calendar hour
func (c *Calendar) Quarter(hour int) int {
	return (c.Month(hour)-1)/3 + 1
}

// Day returns the 1-based day-of-year of a calendar hour
func (c *Calendar) Day(hour int) int {
	return (hour-1)/24 + 1
}
