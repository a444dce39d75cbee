package advisory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"assistant/internal/chat"
)

// BriefingLookahead bounds which schedule entries make it into the briefing.
const BriefingLookahead = 30

// DailyBriefing renders the briefing text for now according to p. It returns ""
// when the briefing is disabled.
func (e *Engine) DailyBriefing(p chat.BriefingPreferences, now time.Time) string {
	if !p.Enabled {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s 데일리 브리핑입니다.\n", now.Format("2006년 1월 2일"))

	if p.IncludeSchedule {
		b.WriteString("\n## 다가오는 일정\n")
		type dated struct {
			item ScheduleItem
			days int
		}
		var upcoming []dated
		for _, item := range e.schedule {
			start, ok := item.Start()
			if !ok {
				continue
			}
			days := ComputeDaysUntil(start, now)
			if days < 0 || days > BriefingLookahead {
				continue
			}
			upcoming = append(upcoming, dated{item, days})
		}
		sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].days < upcoming[j].days })
		if len(upcoming) == 0 {
			b.WriteString("- 예정된 일정이 없어요.\n")
		}
		for _, u := range upcoming {
			fmt.Fprintf(&b, "- %s %s %s (%s)\n", typeLabel(u.item.Type), u.item.Title, u.item.Date, Label(u.days))
		}
	}

	if p.IncludeNews {
		b.WriteString("\n## 주요 소식\n")
		items := filterNews(e.news, p.Topics)
		if len(items) == 0 {
			b.WriteString("- 새로운 소식이 없어요.\n")
		}
		for _, n := range items {
			fmt.Fprintf(&b, "- [%s] %s\n", n.Topic, n.Title)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
