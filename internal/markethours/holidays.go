package markethours

import "time"

func istDate(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 12, 0, 0, 0, IST)
}

// NSE trading holidays for 2026 (several dates are tentative).
var nseHolidays2026 = []time.Time{
	istDate(time.January, 26),  // Republic Day
	istDate(time.February, 17), // Mahashivratri
	istDate(time.March, 14),    // Holi
	istDate(time.March, 31),    // Id-ul-Fitr
	istDate(time.April, 2),     // Ram Navami
	istDate(time.April, 6),     // Mahavir Jayanti
	istDate(time.April, 10),    // Good Friday
	istDate(time.April, 14),    // Dr. Ambedkar Jayanti
	istDate(time.May, 1),       // Maharashtra Day
	istDate(time.June, 7),      // Bakrid
	istDate(time.July, 6),      // Muharram
	istDate(time.August, 15),   // Independence Day
	istDate(time.August, 16),   // Janmashtami
	istDate(time.September, 5), // Milad-un-Nabi
	istDate(time.October, 2),   // Gandhi Jayanti
	istDate(time.October, 20),  // Dussehra
	istDate(time.October, 21),  // Dussehra
	istDate(time.November, 5),  // Diwali Lakshmi Puja
	istDate(time.November, 6),  // Diwali Balipratipada
	istDate(time.November, 7),  // Bhai Dooj
	istDate(time.November, 19), // Guru Nanak Jayanti
	istDate(time.December, 25), // Christmas
}
