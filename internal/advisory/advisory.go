// Package advisory answers schedule and news questions from the static reference
// data by keyword detection. Answers are plain text blocks.
package advisory

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"assistant/internal/catalog"
	"assistant/internal/chat"
)

type (
	ScheduleItem = catalog.ScheduleItem
	NewsItem     = catalog.NewsItem
)

var (
	scheduleKeywords = []string{
		"일정", "휴가", "출장", "스케줄", "예정", "계획", "다가오는", "언제",
		"schedule", "vacation", "trip", "upcoming", "plan",
	}
	vacationKeywords = []string{"휴가", "연차", "vacation"}
	businessKeywords = []string{"출장", "business", "trip"}
	newsKeywords     = []string{"뉴스", "소식", "브리핑", "동향", "news"}
)

// Answer is a matched reply. Sources is empty unless the answer cites news links.
type Answer struct {
	Text    string
	Sources []chat.Source
}

// Engine 只读的日程与新闻问答
// Engine answers from a fixed schedule and news list. It never mutates them.
type Engine struct {
	schedule []ScheduleItem
	news     []NewsItem
	now      func() time.Time
}

// New builds an engine over the catalog's schedule and news.
func New(c *catalog.Catalog) *Engine {
	return NewWithData(c.Schedule, c.News)
}

// NewWithData builds an engine over explicit data.
func NewWithData(schedule []ScheduleItem, news []NewsItem) *Engine {
	return &Engine{
		schedule: append([]ScheduleItem(nil), schedule...),
		news:     append([]NewsItem(nil), news...),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for D-day labels.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

func (e *Engine) Schedule() []ScheduleItem { return append([]ScheduleItem(nil), e.schedule...) }

func (e *Engine) News() []NewsItem { return append([]NewsItem(nil), e.news...) }

// containsAny matches Korean keywords anywhere, since particles attach to the
// noun. ASCII keywords must be a whole word, optionally plural.
func containsAny(q string, keywords []string) bool {
	var words []string
	for _, k := range keywords {
		if !isASCII(k) {
			if strings.Contains(q, k) {
				return true
			}
			continue
		}
		if words == nil {
			words = strings.FieldsFunc(q, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
		}
		for _, w := range words {
			if w == k || w == k+"s" {
				return true
			}
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// MatchScheduleQuery returns the schedule answer for text, or false when text is
// not about the schedule.
//
// A vacation keyword scopes the answer to the first vacation entry, a business-trip
// keyword to the first business entry; otherwise every entry is listed with a count.
func (e *Engine) MatchScheduleQuery(text string) (string, bool) {
	q := strings.ToLower(text)
	if !containsAny(q, scheduleKeywords) {
		return "", false
	}
	if len(e.schedule) == 0 {
		return "예정된 일정이 없어요.", true
	}

	switch {
	case containsAny(q, vacationKeywords):
		if item, ok := e.first(catalog.ScheduleVacation); ok {
			return e.formatItem("휴가 일정을 알려드릴게요.", item), true
		}
	case containsAny(q, businessKeywords):
		if item, ok := e.first(catalog.ScheduleBusiness); ok {
			return e.formatItem("출장 일정을 알려드릴게요.", item), true
		}
	}
	return e.formatAll(), true
}

func (e *Engine) first(t catalog.ScheduleType) (ScheduleItem, bool) {
	for _, item := range e.schedule {
		if item.Type == t {
			return item, true
		}
	}
	return ScheduleItem{}, false
}

func (e *Engine) formatItem(heading string, item ScheduleItem) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**%s**\n", item.Title)
	fmt.Fprintf(&b, "- 날짜: %s", item.Date)
	if label := e.label(item); label != "" {
		fmt.Fprintf(&b, " (%s)", label)
	}
	b.WriteString("\n")
	if d := item.Details; d != nil {
		if d.Duration != "" {
			fmt.Fprintf(&b, "- 기간: %s\n", d.Duration)
		}
		if d.Location != "" {
			fmt.Fprintf(&b, "- 장소: %s\n", d.Location)
		}
		if d.Notes != "" {
			fmt.Fprintf(&b, "- 메모: %s\n", d.Notes)
		}
	}
	if item.Message != "" {
		b.WriteString("\n")
		b.WriteString(item.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) formatAll() string {
	var b strings.Builder
	b.WriteString("다가오는 일정을 알려드릴게요.\n\n")
	for i, item := range e.schedule {
		fmt.Fprintf(&b, "%d. **%s** %s %s", i+1, typeLabel(item.Type), item.Title, item.Date)
		if label := e.label(item); label != "" {
			fmt.Fprintf(&b, " (%s)", label)
		}
		b.WriteString("\n")
		if item.Details != nil && item.Details.Duration != "" {
			fmt.Fprintf(&b, "   - 기간: %s\n", item.Details.Duration)
		}
	}
	fmt.Fprintf(&b, "\n총 %d개의 일정이 예정되어 있어요.", len(e.schedule))
	return b.String()
}

func (e *Engine) label(item ScheduleItem) string {
	start, ok := item.Start()
	if !ok {
		return ""
	}
	return Label(ComputeDaysUntil(start, e.now()))
}

func typeLabel(t catalog.ScheduleType) string {
	switch t {
	case catalog.ScheduleVacation:
		return "[휴가]"
	case catalog.ScheduleBusiness:
		return "[출장]"
	case catalog.ScheduleAnniversary:
		return "[기념일]"
	default:
		return "[일정]"
	}
}

// MatchNewsQuery returns the news answer for text, or false when text is not about
// news. Mentioning a topic name narrows the list to that topic.
func (e *Engine) MatchNewsQuery(text string) (Answer, bool) {
	q := strings.ToLower(text)
	if !containsAny(q, newsKeywords) {
		return Answer{}, false
	}
	items := e.news
	var topic string
	for _, n := range e.news {
		if n.Topic != "" && strings.Contains(q, strings.ToLower(n.Topic)) {
			topic = n.Topic
			break
		}
	}
	if topic != "" {
		items = filterNews(e.news, []string{topic})
	}
	if len(items) == 0 {
		return Answer{Text: "새로운 소식이 없어요."}, true
	}

	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "%s 관련 최신 소식이에요.\n\n", topic)
	} else {
		b.WriteString("최신 소식을 정리해 드릴게요.\n\n")
	}
	sources := make([]chat.Source, 0, len(items))
	for i, n := range items {
		fmt.Fprintf(&b, "%d. **%s** (%s)\n", i+1, n.Title, n.Source)
		if n.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", n.Summary)
		}
		if n.URL != "" {
			sources = append(sources, chat.Source{Title: n.Title, URL: n.URL, Description: n.Summary})
		}
	}
	return Answer{Text: strings.TrimRight(b.String(), "\n"), Sources: sources}, true
}

// Respond tries the schedule answer first, then news.
func (e *Engine) Respond(text string) (Answer, bool) {
	if s, ok := e.MatchScheduleQuery(text); ok {
		return Answer{Text: s}, true
	}
	return e.MatchNewsQuery(text)
}

func filterNews(items []NewsItem, topics []string) []NewsItem {
	if len(topics) == 0 {
		return items
	}
	var out []NewsItem
	for _, n := range items {
		for _, t := range topics {
			if n.Topic == t {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
