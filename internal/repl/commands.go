package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"assistant/internal/advisory"
	"assistant/internal/chat"
	"assistant/internal/config"
	"assistant/internal/onboarding"
	"assistant/internal/responder"
	"assistant/internal/storage"
	"assistant/internal/tui"
)

type command struct {
	name  string
	usage string
	desc  string
}

var commands = []command{
	{"/help", "/help", "명령어 목록"},
	{"/new", "/new", "새 대화 시작"},
	{"/history", "/history", "대화 목록 (고정 우선)"},
	{"/archived", "/archived", "보관한 대화 목록"},
	{"/search", "/search <검색어>", "제목과 내용으로 대화 검색"},
	{"/open", "/open <번호|id>", "대화 열기"},
	{"/show", "/show", "현재 대화 다시 보기"},
	{"/rename", "/rename <번호|id> <제목>", "대화 이름 변경"},
	{"/pin", "/pin <번호|id>", "고정/고정 해제"},
	{"/archive", "/archive <번호|id>", "대화 보관"},
	{"/unarchive", "/unarchive <번호|id>", "보관 해제"},
	{"/delete", "/delete <번호|id>", "대화 삭제"},
	{"/regen", "/regen", "마지막 답변 다시 받기"},
	{"/fav", "/fav services|work [id]", "즐겨찾기 보기/토글"},
	{"/bots", "/bots [fav <id>|add <이름> [설명]|delete <id>]", "챗봇 관리"},
	{"/settings", "/settings", "개인 설정 보기"},
	{"/set", "/set name|assistant|tone|length|websearch|followup <값>", "개인 설정 변경"},
	{"/briefing", "/briefing [on|off|time HH:MM]", "데일리 브리핑"},
	{"/schedule", "/schedule", "다가오는 일정"},
	{"/onboard", "/onboard", "초기 설정 다시 하기"},
	{"/model", "/model [이름]", "모델 보기/변경 (openai)"},
	{"/quit", "/quit", "종료"},
	{"/exit", "/exit", "종료"},
}

func (l *Loop) printHelp() {
	width := 0
	for _, c := range commands {
		if w := len([]rune(c.usage)); w > width {
			width = w
		}
	}
	for _, c := range commands {
		fmt.Fprintf(l.out, "  %s  %s\n", padCells(c.usage, width), l.opts.Theme.MutedStyle.Render(c.desc))
	}
}

// handleCommand runs one slash command and reports whether the loop should exit.
func (l *Loop) handleCommand(ctx context.Context, input string) (exit bool) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		l.printHelp()
	case "/new":
		l.Sessions.NewChat()
		l.infof("새 대화를 시작해요.")
	case "/history":
		l.showList(l.Sessions.List(), "저장된 대화가 없어요.")
	case "/archived":
		l.showList(l.Sessions.Archived(), "보관한 대화가 없어요.")
	case "/search":
		if rest == "" {
			l.errorf("사용법: /search <검색어>")
			break
		}
		l.showList(l.Sessions.Search(rest), "검색 결과가 없어요.")
	case "/open":
		if id, ok := l.resolve(rest); ok {
			l.Sessions.SelectSession(id)
			l.printTranscript()
		}
	case "/show":
		l.printTranscript()
	case "/rename":
		ref, title, _ := strings.Cut(rest, " ")
		if strings.TrimSpace(title) == "" {
			l.errorf("사용법: /rename <번호|id> <제목>")
			break
		}
		if id, ok := l.resolve(ref); ok {
			if _, err := l.Sessions.RenameSession(id, title); err != nil {
				l.errorf("%v", err)
			}
		}
	case "/pin":
		if id, ok := l.resolve(rest); ok {
			l.Sessions.SetPinned(id, nil)
		}
	case "/archive", "/unarchive":
		if id, ok := l.resolve(rest); ok {
			l.Sessions.SetArchived(id, name == "/archive")
		}
	case "/delete":
		if id, ok := l.resolve(rest); ok {
			l.Sessions.DeleteSession(id)
			l.listed = nil
		}
	case "/regen":
		l.regenerate(ctx)
	case "/fav":
		l.handleFavorites(rest)
	case "/bots":
		l.handleChatbots(rest)
	case "/settings":
		l.showSettings()
	case "/set":
		l.handleSet(rest)
	case "/briefing":
		l.handleBriefing(rest)
	case "/schedule":
		l.showSchedule()
	case "/onboard":
		l.runOnboarding()
	case "/model":
		l.handleModel(ctx, rest)
	default:
		l.errorf("알 수 없는 명령어예요: %s (/help 참고)", name)
	}
	return false
}

func (l *Loop) showList(sessions []chat.Session, empty string) {
	l.listed = sessions
	if len(sessions) == 0 {
		l.infof("%s", l.opts.Theme.MutedStyle.Render(empty))
		return
	}
	active := l.Sessions.ActiveID()
	for i, s := range sessions {
		mark := "  "
		if s.Pinned {
			mark = l.opts.Theme.PinnedStyle.Render("📌")
		}
		title := padCells(truncateCells(s.Title, 40), 40)
		if s.ID == active {
			title = l.opts.Theme.SelectedStyle.Render(title)
		}
		l.infof("%3d %s %s %s", i+1, mark, title,
			l.opts.Theme.MutedStyle.Render(fmt.Sprintf("%d개 메시지 · %s", len(s.Messages), s.CreatedAt.Local().Format("01/02 15:04"))))
	}
}

// resolve maps a command argument to a session id: a 1-based index into the last
// listing, an exact id, or a unique id prefix.
func (l *Loop) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		l.errorf("대화 번호나 id를 입력해 주세요.")
		return "", false
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(l.listed) {
			return l.listed[n-1].ID, true
		}
		l.errorf("목록에 %d번 대화가 없어요.", n)
		return "", false
	}
	if s, ok := l.Sessions.Get(ref); ok {
		return s.ID, true
	}
	var match string
	for _, s := range append(l.Sessions.List(), l.Sessions.Archived()...) {
		if strings.HasPrefix(s.ID, ref) {
			if match != "" {
				l.errorf("%q 로 시작하는 대화가 여러 개예요.", ref)
				return "", false
			}
			match = s.ID
		}
	}
	if match == "" {
		l.errorf("대화를 찾을 수 없어요: %s", ref)
		return "", false
	}
	return match, true
}

func (l *Loop) handleFavorites(rest string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		l.errorf("사용법: /fav services|work [id]")
		return
	}
	var (
		key      string
		defaults []string
		entries  [][2]string
	)
	switch fields[0] {
	case "services", "service":
		key, defaults = storage.KeyFavoriteServices, l.Catalog.DefaultFavoriteServices()
		for _, s := range l.Catalog.Services {
			entries = append(entries, [2]string{s.ID, s.Icon + " " + s.Name})
		}
	case "work":
		key, defaults = storage.KeyWorkItemFavorites, l.Catalog.DefaultWorkItemFavorites()
		for _, w := range l.Catalog.WorkItems {
			entries = append(entries, [2]string{w.ID, fmt.Sprintf("%s (%s)", w.Title, w.Category)})
		}
	default:
		l.errorf("services 또는 work 중에서 골라 주세요.")
		return
	}

	set := l.Favorites.Load(key, defaults)
	if len(fields) > 1 {
		next, err := l.Favorites.Toggle(key, fields[1])
		if err != nil {
			l.errorf("%v", err)
			return
		}
		set = next
	}
	member := make(map[string]bool, len(set))
	for _, id := range set {
		member[id] = true
	}
	for _, e := range entries {
		star := "☆"
		if member[e[0]] {
			star = l.opts.Theme.PinnedStyle.Render("★")
		}
		l.infof("  %s %-16s %s", star, e[0], e[1])
	}
}

func (l *Loop) handleChatbots(rest string) {
	sub, arg, _ := strings.Cut(rest, " ")
	arg = strings.TrimSpace(arg)
	switch sub {
	case "":
		l.listChatbots(l.Chatbots.List())
	case "fav":
		if arg == "" {
			l.listChatbots(l.Chatbots.Favorites())
			return
		}
		bot, ok, err := l.Chatbots.ToggleFavorite(arg)
		switch {
		case err != nil:
			l.errorf("%v", err)
		case !ok:
			l.errorf("챗봇을 찾을 수 없어요: %s", arg)
		case bot.IsFavorite:
			l.infof("%s 챗봇을 즐겨찾기에 추가했어요.", bot.Name)
		default:
			l.infof("%s 챗봇을 즐겨찾기에서 뺐어요.", bot.Name)
		}
	case "add":
		botName, desc, _ := strings.Cut(arg, " ")
		bot, err := l.Chatbots.Add(chat.Chatbot{Name: botName, Description: strings.TrimSpace(desc), Icon: "🤖"})
		if err != nil {
			l.errorf("%v", err)
			return
		}
		l.infof("챗봇을 추가했어요: %s (%s)", bot.Name, bot.ID)
	case "delete":
		ok, err := l.Chatbots.Delete(arg)
		switch {
		case err != nil:
			l.errorf("%v", err)
		case !ok:
			l.errorf("챗봇을 찾을 수 없어요: %s", arg)
		default:
			l.infof("챗봇을 삭제했어요.")
		}
	default:
		l.errorf("사용법: /bots [fav <id>|add <이름> [설명]|delete <id>]")
	}
}

func (l *Loop) listChatbots(bots []chat.Chatbot) {
	if len(bots) == 0 {
		l.infof("%s", l.opts.Theme.MutedStyle.Render("챗봇이 없어요."))
		return
	}
	for _, b := range bots {
		star := "☆"
		if b.IsFavorite {
			star = l.opts.Theme.PinnedStyle.Render("★")
		}
		l.infof("  %s %s %s %s", star, b.Icon, padCells(b.Name, 16),
			l.opts.Theme.MutedStyle.Render(fmt.Sprintf("%s · %s · %s", b.ID, b.Visibility, truncateCells(b.Description, 30))))
	}
}

func (l *Loop) showSettings() {
	s, stored := l.Settings.Load()
	if !stored {
		l.infof("%s", l.opts.Theme.MutedStyle.Render("아직 저장된 설정이 없어 기본값을 보여 드려요. /onboard 로 설정할 수 있어요."))
	}
	l.infof("  이름        %s", s.UserName)
	l.infof("  비서 이름   %s", s.AssistantName)
	l.infof("  말투        %s", s.ToneStyle)
	l.infof("  답변 길이   %s", s.AnswerLength)
	l.infof("  웹 검색     %s", yesNo(s.AllowWebSearch))
	l.infof("  후속 질문   %s", yesNo(s.AllowFollowUpQuestions))
}

func (l *Loop) handleSet(rest string) {
	field, value, _ := strings.Cut(rest, " ")
	value = strings.TrimSpace(value)
	s, _ := l.Settings.Load()
	switch field {
	case "name":
		s.UserName = value
	case "assistant":
		s.AssistantName = value
	case "tone":
		tone, ok := chat.ParseToneStyle(value)
		if !ok {
			l.errorf("말투는 friendly, professional, casual 중 하나예요.")
			return
		}
		s.ToneStyle = tone
	case "length":
		length, ok := chat.ParseAnswerLength(value)
		if !ok {
			l.errorf("답변 길이는 short, medium, long 중 하나예요.")
			return
		}
		s.AnswerLength = length
	case "websearch", "followup":
		v, ok := onboarding.ParseYesNo(value)
		if !ok {
			l.errorf("yes 또는 no 로 입력해 주세요.")
			return
		}
		if field == "websearch" {
			s.AllowWebSearch = v
		} else {
			s.AllowFollowUpQuestions = v
		}
	default:
		l.errorf("사용법: /set name|assistant|tone|length|websearch|followup <값>")
		return
	}
	if err := l.Settings.Save(s); err != nil {
		l.errorf("%v", err)
		return
	}
	l.infof("설정을 저장했어요.")
}

func (l *Loop) handleBriefing(rest string) {
	p := l.Briefing.Load()
	fields := strings.Fields(rest)
	if len(fields) > 0 {
		switch fields[0] {
		case "on":
			p.Enabled = true
		case "off":
			p.Enabled = false
		case "time":
			if len(fields) < 2 {
				l.errorf("사용법: /briefing time HH:MM")
				return
			}
			p.DeliveryTime = fields[1]
		default:
			l.errorf("사용법: /briefing [on|off|time HH:MM]")
			return
		}
		if err := l.Briefing.Save(p); err != nil {
			l.errorf("%v", err)
			return
		}
		l.infof("브리핑 설정을 저장했어요. (%s, %s)", onOff(p.Enabled), p.DeliveryTime)
		return
	}
	text := l.Advisor.DailyBriefing(p, time.Now())
	if text == "" {
		l.infof("%s", l.opts.Theme.MutedStyle.Render("데일리 브리핑이 꺼져 있어요. /briefing on 으로 켤 수 있어요."))
		return
	}
	l.printMarkdown(text)
}

func (l *Loop) showSchedule() {
	now := time.Now()
	items := l.Advisor.Schedule()
	if len(items) == 0 {
		l.infof("%s", l.opts.Theme.MutedStyle.Render("예정된 일정이 없어요."))
		return
	}
	for _, item := range items {
		label := ""
		if start, ok := item.Start(); ok {
			label = advisory.Label(advisory.ComputeDaysUntil(start, now))
		}
		l.infof("  %s  %s %s", padCells(item.Title, 24), item.Date, l.opts.Theme.SourceStyle.Render(label))
	}
}

// runOnboarding is the line-mode version of the wizard, used inside the REPL.
func (l *Loop) runOnboarding() {
	var done *chat.UserSettings
	m := onboarding.New(onboarding.Callbacks{
		OnComplete: func(s chat.UserSettings) { done = &s },
	})
	for !m.Finished() {
		l.infof("\n%s", tui.Prompt(m.State()))
		opts := tui.Options(m)
		for i, o := range opts {
			l.infof("  %d) %s", i+1, o)
		}
		line, err := l.in.ReadLine("onboard> ")
		if err != nil {
			_ = m.Skip()
			break
		}
		line = strings.TrimSpace(line)
		switch line {
		case "/skip":
			_ = m.Skip()
			continue
		case "/back":
			if res, err := m.Back(); err == nil && res.FellBack {
				l.infof("%s", l.opts.Theme.MutedStyle.Render("처음 단계로 돌아왔어요."))
			}
			continue
		}
		index := 0
		if opts != nil {
			n, err := strconv.Atoi(line)
			if err != nil && line == "" {
				n = 1
			} else if err != nil {
				l.errorf("번호로 골라 주세요.")
				continue
			}
			index = n - 1
		}
		if err := tui.Advance(m, index, line); err != nil {
			l.errorf("%v", err)
		}
	}
	if done == nil {
		l.infof("%s", l.opts.Theme.MutedStyle.Render("설정을 건너뛰었어요."))
		return
	}
	if err := l.Settings.Save(*done); err != nil {
		l.errorf("%v", err)
		return
	}
	l.infof("%s", l.opts.Theme.SuccessStyle.Render(tui.Prompt(onboarding.Complete)))
}

func (l *Loop) handleModel(ctx context.Context, name string) {
	p, ok := l.Provider.(*responder.OpenAI)
	if !ok {
		l.errorf("모의 응답 모드에서는 모델을 바꿀 수 없어요.")
		return
	}
	if name == "" {
		l.infof("현재 모델: %s", p.CurrentModel())
		models, err := p.ListModels(ctx)
		if err != nil {
			l.errorf("%v", err)
			return
		}
		for _, m := range models {
			l.infof("  - %s", m)
		}
		return
	}
	if err := p.SetModel(name); err != nil {
		l.errorf("%v", err)
		return
	}
	l.Model = p.CurrentModel()
	cwd, err := os.Getwd()
	if err == nil {
		err = config.WriteProviderModel(cwd, name)
	}
	if err != nil {
		l.errorf("모델을 바꿨지만 설정 파일에 저장하지 못했어요: %v", err)
		return
	}
	l.infof("모델을 %s 로 바꿨어요.", name)
}

func yesNo(v bool) string {
	if v {
		return "예"
	}
	return "아니요"
}

func onOff(v bool) string {
	if v {
		return "켜짐"
	}
	return "꺼짐"
}
