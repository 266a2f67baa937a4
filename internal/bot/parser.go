package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window is a coarse day period a customer asked for instead of an exact time.
type Window string

const (
	WindowMorning   Window = "morning"
	WindowAfternoon Window = "afternoon"
	WindowEvening   Window = "evening"
)

// ClockTime is a wall-clock time of day with no date attached.
type ClockTime struct {
	Hour   int
	Minute int
}

// Entities holds everything extracted from a single inbound message.
// Nil/empty fields mean the message did not mention that entity.
type Entities struct {
	Date   *time.Time
	Time   *ClockTime
	Window Window
	Phone  string
	Name   string
}

var monthsPT = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

var weekdaysPT = map[string]time.Weekday{
	"segunda": time.Monday, "segunda-feira": time.Monday,
	"terca": time.Tuesday, "terca-feira": time.Tuesday,
	"quarta": time.Wednesday, "quarta-feira": time.Wednesday,
	"quinta": time.Thursday, "quinta-feira": time.Thursday,
	"sexta": time.Friday, "sexta-feira": time.Friday,
	"sabado": time.Saturday,
	"domingo": time.Sunday,
}

// Longest alternatives first so "segunda-feira" is not split at "segunda".
const weekdayAlt = `segunda-feira|terca-feira|quarta-feira|quinta-feira|sexta-feira|segunda|terca|quarta|quinta|sexta|sabado|domingo`

const monthAlt = `janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro|jan|fev|mar|abr|mai|jun|jul|ago|set|out|nov|dez`

var (
	reSlashDate   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	reSpelledDate = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(` + monthAlt + `)\b`)
	reNextWeekday = regexp.MustCompile(`\b(?:proxima?|essa?|esta)\s+(` + weekdayAlt + `)\b|\b(` + weekdayAlt + `)\s+que\s+vem\b`)
	rePlainWkday  = regexp.MustCompile(`\b(` + weekdayAlt + `)\b`)

	reTimeHM    = regexp.MustCompile(`\b(\d{1,2})h(\d{2})\b`)
	reTimeColon = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	reTimeHour  = regexp.MustCompile(`\b(\d{1,2})h(?:oras?)?\b`)

	rePhone      = regexp.MustCompile(`\+?55\d{2}9?\d{8}|\b\d{2}9?\d{8}\b`)
	rePhoneClean = regexp.MustCompile(`[\s\-()]+`)

	reNameStated = regexp.MustCompile(`(?:meu nome [eé]|nome [eé]|me chamo|sou [oa]?)\s+([A-ZÀ-Ú][a-zà-ú]+(?:\s+[A-ZÀ-Ú][a-zà-ú]+)*)`)
	reNameCaps   = regexp.MustCompile(`\b([A-ZÀ-Ú][a-zà-ú]+(?:\s+[A-ZÀ-Ú][a-zà-ú]+){0,2})\b`)

	reHoje   = regexp.MustCompile(`\bhoje\b`)
	reAmanha = regexp.MustCompile(`\bamanha\b`)
)

// periodTimes maps day-period phrases to a representative booking time.
// Ordered, more specific phrases first.
var periodTimes = []struct {
	re *regexp.Regexp
	t  ClockTime
}{
	{regexp.MustCompile(`\b(?:bem cedo|cedo|madrugada)\b`), ClockTime{6, 0}},
	{regexp.MustCompile(`\b(?:de manha|pela manha|manha)\b`), ClockTime{9, 0}},
	{regexp.MustCompile(`\bmeio[- ]?dia\b`), ClockTime{12, 0}},
	{regexp.MustCompile(`\b(?:final da tarde|final de tarde|fim de tarde)\b`), ClockTime{17, 0}},
	{regexp.MustCompile(`\b(?:de tarde|pela tarde|tarde)\b`), ClockTime{14, 0}},
	{regexp.MustCompile(`\b(?:de noite|a noite|noitinha|noite)\b`), ClockTime{19, 0}},
}

var windowPatterns = []struct {
	re *regexp.Regexp
	w  Window
}{
	{regexp.MustCompile(`\b(?:manha|cedo)\b`), WindowMorning},
	{regexp.MustCompile(`\btarde\b`), WindowAfternoon},
	{regexp.MustCompile(`\b(?:noite|noitinha)\b`), WindowEvening},
}

// accentReplacer folds Portuguese accented letters to ASCII, including ç→c,
// so patterns match however the customer typed.
var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c",
	"Á", "a", "À", "a", "Â", "a", "Ã", "a",
	"É", "e", "Ê", "e",
	"Í", "i",
	"Ó", "o", "Ô", "o", "Õ", "o",
	"Ú", "u",
	"Ç", "c",
)

func normalizeText(text string) string {
	return accentReplacer.Replace(strings.TrimSpace(strings.ToLower(text)))
}

// Parser extracts booking entities from Brazilian Portuguese free text.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseDate finds a date in the text relative to base. Explicit dates
// (23/03, 23 de marco) win over relative keywords (hoje, amanha), which win
// over bare weekday names. Returns nil when nothing parses.
func (p *Parser) ParseDate(text string, base time.Time) *time.Time {
	norm := normalizeText(text)
	today := truncateDate(base)

	if m := reSlashDate.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		var year int
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		} else {
			year = today.Year()
			if d, ok := makeDate(year, time.Month(month), day); ok && d.Before(today) {
				year++
			}
		}
		if d, ok := makeDate(year, time.Month(month), day); ok {
			return &d
		}
		return nil
	}

	if m := reSpelledDate.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthsPT[m[2]]
		d, ok := makeDate(today.Year(), month, day)
		if !ok {
			return nil
		}
		if d.Before(today) {
			d, ok = makeDate(today.Year()+1, month, day)
			if !ok {
				return nil
			}
		}
		return &d
	}

	switch {
	case strings.Contains(norm, "depois de amanha"):
		d := today.AddDate(0, 0, 2)
		return &d
	case reHoje.MatchString(norm):
		return &today
	case reAmanha.MatchString(norm):
		d := today.AddDate(0, 0, 1)
		return &d
	case strings.Contains(norm, "daqui a 2 dias"):
		d := today.AddDate(0, 0, 2)
		return &d
	case strings.Contains(norm, "daqui a 3 dias"):
		d := today.AddDate(0, 0, 3)
		return &d
	}

	if m := reNextWeekday.FindStringSubmatch(norm); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		d := nextWeekday(today, weekdaysPT[name])
		return &d
	}
	if m := rePlainWkday.FindStringSubmatch(norm); m != nil {
		d := nextWeekday(today, weekdaysPT[m[1]])
		return &d
	}

	return nil
}

// ParseTime finds a time of day: 14h30, 14:30, 14h, or a day-period phrase
// mapped to its representative time (manha 9h, tarde 14h, noite 19h).
func (p *Parser) ParseTime(text string) *ClockTime {
	norm := normalizeText(text)

	for _, re := range []*regexp.Regexp{reTimeHM, reTimeColon} {
		if m := re.FindStringSubmatch(norm); m != nil {
			hh, _ := strconv.Atoi(m[1])
			mm, _ := strconv.Atoi(m[2])
			if validClock(hh, mm) {
				return &ClockTime{Hour: hh, Minute: mm}
			}
			return nil
		}
	}
	if m := reTimeHour.FindStringSubmatch(norm); m != nil {
		hh, _ := strconv.Atoi(m[1])
		if validClock(hh, 0) {
			return &ClockTime{Hour: hh}
		}
		return nil
	}

	for _, pt := range periodTimes {
		if pt.re.MatchString(norm) {
			t := pt.t
			return &t
		}
	}
	return nil
}

// HasExplicitTime reports whether the text carries a numeric clock time,
// as opposed to a day-period phrase.
func (p *Parser) HasExplicitTime(text string) bool {
	norm := normalizeText(text)
	return reTimeHM.MatchString(norm) || reTimeColon.MatchString(norm) || reTimeHour.MatchString(norm)
}

// ParseWindow finds a coarse day-period preference.
func (p *Parser) ParseWindow(text string) Window {
	norm := normalizeText(text)
	for _, wp := range windowPatterns {
		if wp.re.MatchString(norm) {
			return wp.w
		}
	}
	return ""
}

// ParsePhone extracts a Brazilian phone number normalized to +55 form.
func (p *Parser) ParsePhone(text string) string {
	clean := rePhoneClean.ReplaceAllString(text, "")
	m := rePhone.FindString(clean)
	if m == "" {
		return ""
	}
	digits := strings.TrimPrefix(m, "+")
	switch {
	case len(digits) == 11:
		return "+55" + digits
	case len(digits) == 13 && strings.HasPrefix(digits, "55"):
		return "+" + digits
	}
	return ""
}

// ParseName extracts a stated proper name ("meu nome é João", "me chamo Ana").
func (p *Parser) ParseName(text string) string {
	for _, re := range []*regexp.Regexp{reNameStated, reNameCaps} {
		if m := re.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if len([]rune(name)) > 2 && !commonWords[name] {
				return name
			}
		}
	}
	return ""
}

var commonWords = map[string]bool{
	"Whatsapp": true, "Bot": true, "Agenda": true, "Por": true, "Favor": true,
	"Obrigado": true, "Obrigada": true, "Oi": true, "Olá": true, "Meu": true,
	"Nome": true, "Sou": true, "Bom": true, "Boa": true,
}

// ExtractEntities runs every extractor over the text.
func (p *Parser) ExtractEntities(text string, base time.Time) Entities {
	return Entities{
		Date:   p.ParseDate(text, base),
		Time:   p.ParseTime(text),
		Window: p.ParseWindow(text),
		Phone:  p.ParsePhone(text),
		Name:   p.ParseName(text),
	}
}

// FormatDate renders a date the way a person would say it: "hoje", "amanhã",
// "depois de amanhã", or "segunda, 23/03".
func (p *Parser) FormatDate(d time.Time, base time.Time) string {
	today := truncateDate(base)
	d = truncateDate(d)
	switch {
	case d.Equal(today):
		return "hoje"
	case d.Equal(today.AddDate(0, 0, 1)):
		return "amanhã"
	case d.Equal(today.AddDate(0, 0, 2)):
		return "depois de amanhã"
	}
	names := map[time.Weekday]string{
		time.Monday: "segunda", time.Tuesday: "terça", time.Wednesday: "quarta",
		time.Thursday: "quinta", time.Friday: "sexta", time.Saturday: "sábado",
		time.Sunday: "domingo",
	}
	return fmt.Sprintf("%s, %02d/%02d", names[d.Weekday()], d.Day(), int(d.Month()))
}

// FormatTime renders "14h" on the hour, "14:30" otherwise.
func (p *Parser) FormatTime(t ClockTime) string {
	if t.Minute == 0 {
		return fmt.Sprintf("%dh", t.Hour)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func validClock(hh, mm int) bool {
	return hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}
