package render

import (
	"fmt"
	"time"
)

var ruMonthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders a post timestamp (unix millis) as a long date in loc's
// time zone, e.g. "05 марта 2024 г." or "March 05, 2024".
func FormatDate(locale string, ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(ms).In(loc)
	if LabelsFor(locale).Lang == "en" {
		return t.Format("January 02, 2006")
	}
	return fmt.Sprintf("%02d %s %d г.", t.Day(), ruMonthsGenitive[t.Month()-1], t.Year())
}
