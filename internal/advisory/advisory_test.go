package advisory

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"assistant/internal/catalog"
	"assistant/internal/chat"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 17, 15, 30, 0, 0, time.Local)
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(catalog.MustLoad()).WithClock(fixedNow)
}

func TestMatchScheduleQuery_NotSchedule(t *testing.T) {
	e := testEngine(t)
	for _, q := range []string{"안녕", "", "복지카드 발급 방법"} {
		got, ok := e.MatchScheduleQuery(q)
		require.False(t, ok, q)
		require.Empty(t, got)
	}
}

func TestMatchScheduleQuery_EnglishWholeWords(t *testing.T) {
	e := testEngine(t)
	for _, q := range []string{"need an explanation", "airplane seats", "strip the text", "newsletter signup"} {
		_, ok := e.MatchScheduleQuery(q)
		require.False(t, ok, q)
	}
	for _, q := range []string{"my plans?", "Upcoming trip", "vacation."} {
		_, ok := e.MatchScheduleQuery(q)
		require.True(t, ok, q)
	}
	_, ok := e.MatchNewsQuery("any news today")
	require.True(t, ok)
	_, ok = e.MatchNewsQuery("newsletter signup")
	require.False(t, ok)
}

func TestMatchScheduleQuery_Vacation(t *testing.T) {
	e := NewWithData([]ScheduleItem{{
		Type:    catalog.ScheduleVacation,
		Title:   "연차 휴가",
		Date:    "1/20 (월)",
		Details: &catalog.ScheduleDetails{Duration: "1/20 (월) ~ 1/21 (화)"},
	}}, nil)

	got, ok := e.MatchScheduleQuery("휴가 일정 알려줘")
	require.True(t, ok)
	require.Contains(t, got, "연차 휴가")
	require.Contains(t, got, "1/20 (월) ~ 1/21 (화)")
}

func TestMatchScheduleQuery_Business(t *testing.T) {
	got, ok := testEngine(t).MatchScheduleQuery("다음 출장 언제야?")
	require.True(t, ok)
	require.Contains(t, got, "부산 지사 출장")
	require.Contains(t, got, "장소: 부산 지사")
	require.Contains(t, got, "D-6")
	require.NotContains(t, got, "연차 휴가")
}

func TestMatchScheduleQuery_AllItems(t *testing.T) {
	got, ok := testEngine(t).MatchScheduleQuery("Upcoming SCHEDULE?")
	require.True(t, ok)
	for _, title := range []string{"연차 휴가", "부산 지사 출장", "입사 3주년"} {
		require.Contains(t, got, title)
	}
	require.True(t, strings.HasSuffix(got, "총 3개의 일정이 예정되어 있어요."), got)
}

func TestMatchScheduleQuery_VacationMissingFallsBackToList(t *testing.T) {
	e := NewWithData([]ScheduleItem{{Type: catalog.ScheduleBusiness, Title: "출장"}}, nil)
	got, ok := e.MatchScheduleQuery("휴가 계획")
	require.True(t, ok)
	require.Contains(t, got, "총 1개")
}

func TestMatchScheduleQuery_EmptySchedule(t *testing.T) {
	got, ok := NewWithData(nil, nil).MatchScheduleQuery("일정")
	require.True(t, ok)
	require.Equal(t, "예정된 일정이 없어요.", got)
}

func TestMatchNewsQuery(t *testing.T) {
	e := testEngine(t)

	_, ok := e.MatchNewsQuery("안녕")
	require.False(t, ok)

	all, ok := e.MatchNewsQuery("오늘 뉴스 알려줘")
	require.True(t, ok)
	require.Len(t, all.Sources, 3)

	scoped, ok := e.MatchNewsQuery("업계 동향 정리해줘")
	require.True(t, ok)
	require.Contains(t, scoped.Text, "생성형 AI 업무 활용 가이드 배포")
	require.NotContains(t, scoped.Text, "조직 개편")
	require.Len(t, scoped.Sources, 1)
}

func TestRespondPrefersSchedule(t *testing.T) {
	e := testEngine(t)
	a, ok := e.Respond("휴가 소식")
	require.True(t, ok)
	require.Contains(t, a.Text, "연차 휴가")
	require.Empty(t, a.Sources)

	_, ok = e.Respond("점심 메뉴 추천")
	require.False(t, ok)
}

func TestComputeDaysUntil(t *testing.T) {
	now := fixedNow()
	cases := []struct {
		start time.Time
		want  int
	}{
		{time.Date(2025, 1, 20, 0, 0, 0, 0, time.Local), 3},
		{time.Date(2025, 1, 17, 23, 59, 0, 0, time.Local), 0},
		{time.Date(2025, 1, 17, 0, 0, 0, 0, time.Local), 0},
		{time.Date(2025, 1, 15, 9, 0, 0, 0, time.Local), -2},
		{time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local), 43},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ComputeDaysUntil(tc.start, now), tc.start.String())
	}
}

func TestClassifyAndLabel(t *testing.T) {
	cases := []struct {
		days  int
		class Urgency
		label string
	}{
		{-2, UrgencyOverdue, "D+2"},
		{0, UrgencyToday, "D-Day"},
		{1, UrgencySoon, "D-1"},
		{7, UrgencySoon, "D-7"},
		{8, UrgencyFuture, "D-8"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.class, Classify(tc.days))
		require.Equal(t, tc.label, Label(tc.days))
	}
}

func TestDailyBriefing(t *testing.T) {
	e := testEngine(t)
	p := chat.DefaultBriefingPreferences()

	got := e.DailyBriefing(p, fixedNow())
	require.Contains(t, got, "2025년 1월 17일")
	require.Contains(t, got, "연차 휴가 1/20 (월) (D-3)")
	require.Contains(t, got, "입사 3주년")
	require.Contains(t, got, "사내 복지카드 사용처 확대")
	require.Less(t, strings.Index(got, "연차 휴가"), strings.Index(got, "부산 지사 출장"))

	p.Topics = []string{"업계 동향"}
	p.IncludeSchedule = false
	got = e.DailyBriefing(p, fixedNow())
	require.NotContains(t, got, "다가오는 일정")
	require.NotContains(t, got, "사내 복지카드")
	require.Contains(t, got, "생성형 AI")

	p.Enabled = false
	require.Empty(t, e.DailyBriefing(p, fixedNow()))
}
