package calendar

import "time"

// HolidayCalendar answers whether a calendar date is a national holiday.
// Tables are authored per year with explicit dates, movable feasts included;
// nothing is computed at runtime. A year without a table simply has no
// holidays.
type HolidayCalendar struct {
	years map[int]map[string]string // year -> "MM-DD" -> label
}

// defaultHolidays covers the Chilean national calendar. Easter-related dates
// are written out for each year rather than derived.
var defaultHolidays = map[int]map[string]string{
	2023: {
		"01-01": "Año Nuevo",
		"01-02": "Feriado adicional Año Nuevo",
		"04-07": "Viernes Santo",
		"04-08": "Sábado Santo",
		"05-01": "Día del Trabajo",
		"05-21": "Día de las Glorias Navales",
		"06-21": "Día Nacional de los Pueblos Indígenas",
		"06-26": "San Pedro y San Pablo",
		"07-16": "Día de la Virgen del Carmen",
		"08-15": "Asunción de la Virgen",
		"09-18": "Independencia Nacional",
		"09-19": "Día de las Glorias del Ejército",
		"10-09": "Encuentro de Dos Mundos",
		"10-27": "Día de las Iglesias Evangélicas",
		"11-01": "Día de Todos los Santos",
		"12-08": "Inmaculada Concepción",
		"12-25": "Navidad",
	},
	2024: {
		"01-01": "Año Nuevo",
		"03-29": "Viernes Santo",
		"03-30": "Sábado Santo",
		"05-01": "Día del Trabajo",
		"05-21": "Día de las Glorias Navales",
		"06-20": "Día Nacional de los Pueblos Indígenas",
		"06-29": "San Pedro y San Pablo",
		"07-16": "Día de la Virgen del Carmen",
		"08-15": "Asunción de la Virgen",
		"09-18": "Independencia Nacional",
		"09-19": "Día de las Glorias del Ejército",
		"09-20": "Feriado adicional Fiestas Patrias",
		"10-12": "Encuentro de Dos Mundos",
		"10-31": "Día de las Iglesias Evangélicas",
		"11-01": "Día de Todos los Santos",
		"12-08": "Inmaculada Concepción",
		"12-25": "Navidad",
	},
	2025: {
		"01-01": "Año Nuevo",
		"04-18": "Viernes Santo",
		"04-19": "Sábado Santo",
		"05-01": "Día del Trabajo",
		"05-21": "Día de las Glorias Navales",
		"06-20": "Día Nacional de los Pueblos Indígenas",
		"06-29": "San Pedro y San Pablo",
		"07-16": "Día de la Virgen del Carmen",
		"08-15": "Asunción de la Virgen",
		"09-18": "Independencia Nacional",
		"09-19": "Día de las Glorias del Ejército",
		"10-12": "Encuentro de Dos Mundos",
		"10-31": "Día de las Iglesias Evangélicas",
		"11-01": "Día de Todos los Santos",
		"12-08": "Inmaculada Concepción",
		"12-25": "Navidad",
	},
	2026: {
		"01-01": "Año Nuevo",
		"04-03": "Viernes Santo",
		"04-04": "Sábado Santo",
		"05-01": "Día del Trabajo",
		"05-21": "Día de las Glorias Navales",
		"06-21": "Día Nacional de los Pueblos Indígenas",
		"06-29": "San Pedro y San Pablo",
		"07-16": "Día de la Virgen del Carmen",
		"08-15": "Asunción de la Virgen",
		"09-18": "Independencia Nacional",
		"09-19": "Día de las Glorias del Ejército",
		"10-12": "Encuentro de Dos Mundos",
		"10-31": "Día de las Iglesias Evangélicas",
		"11-01": "Día de Todos los Santos",
		"12-08": "Inmaculada Concepción",
		"12-25": "Navidad",
	},
}

// NewHolidayCalendar returns a calendar backed by the built-in tables.
func NewHolidayCalendar() *HolidayCalendar {
	return &HolidayCalendar{years: defaultHolidays}
}

// NewHolidayCalendarWith returns a calendar backed entirely by the supplied
// tables, keyed year -> "MM-DD" -> label. Intended for tests and for schools
// with regional holiday resolutions.
func NewHolidayCalendarWith(years map[int]map[string]string) *HolidayCalendar {
	if years == nil {
		years = map[int]map[string]string{}
	}
	return &HolidayCalendar{years: years}
}

// IsHoliday reports whether d falls on a holiday of its year.
func (c *HolidayCalendar) IsHoliday(d time.Time) bool {
	_, ok := c.Label(d)
	return ok
}

// Label returns the holiday name for d, if any.
func (c *HolidayCalendar) Label(d time.Time) (string, bool) {
	table, ok := c.years[d.Year()]
	if !ok {
		return "", false
	}
	label, ok := table[d.Format("01-02")]
	return label, ok
}
