package util

// RandIntRange returns a random int in [min, max].
func RandIntRange(r RandomSource, min int, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// IsLeapYear reports whether year is a leap year.
func IsLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

// DaysInMonth returns the number of days for a given month in a year.
func DaysInMonth(year int, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// MonthsBetween returns the number of whole calendar months from (y1, m1) to (y2, m2).
func MonthsBetween(y1, m1, y2, m2 int) int {
	return (y2-y1)*12 + (m2 - m1)
}
