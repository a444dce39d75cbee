package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Services) == 0 || len(c.WorkItems) < 8 || len(c.Chatbots) == 0 {
		t.Fatalf("unexpected catalog sizes: services=%d work=%d bots=%d", len(c.Services), len(c.WorkItems), len(c.Chatbots))
	}
	if c.Schedule[0].Type != ScheduleVacation || c.Schedule[0].Title != "연차 휴가" {
		t.Fatalf("first schedule item = %+v", c.Schedule[0])
	}
	if c.Schedule[0].Details == nil || c.Schedule[0].Details.Duration != "1/20 (월) ~ 1/21 (화)" {
		t.Fatalf("vacation details = %+v", c.Schedule[0].Details)
	}
	start, ok := c.Schedule[0].Start()
	if !ok || start.Year() != 2025 || start.Day() != 20 {
		t.Fatalf("Start()=%v ok=%v", start, ok)
	}
	if !c.Chatbots[0].IsFavorite || c.Chatbots[2].Visibility != "team" || !c.Chatbots[2].IsOwner {
		t.Fatalf("chatbot flags not decoded: %+v", c.Chatbots)
	}
}

func TestDefaults(t *testing.T) {
	c := MustLoad()
	favs := c.DefaultFavoriteServices()
	want := []string{"hr-bot", "it-helpdesk", "meeting-bot"}
	if len(favs) != len(want) {
		t.Fatalf("favorites=%v, want %v", favs, want)
	}
	for i := range want {
		if favs[i] != want[i] {
			t.Fatalf("favorites=%v, want %v", favs, want)
		}
	}
	work := c.DefaultWorkItemFavorites()
	if len(work) != 8 || work[0] != "1" || work[7] != "8" {
		t.Fatalf("work favorites=%v", work)
	}
	if _, ok := c.WorkItem("3"); !ok {
		t.Fatal("WorkItem(3) missing")
	}
	if _, ok := c.Service("nope"); ok {
		t.Fatal("unexpected service")
	}
}

func TestLoadDirOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `schedule:
  - type: business
    title: 서울 본사 출장
    date: 3/3 (월)
    startDate: "2025-03-03"
`
	if err := os.WriteFile(filepath.Join(dir, "schedule.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(c.Schedule) != 1 || c.Schedule[0].Title != "서울 본사 출장" {
		t.Fatalf("overlay not applied: %+v", c.Schedule)
	}
	if len(c.Services) == 0 {
		t.Fatal("embedded services lost after overlay")
	}

	bad := "schedule:\n  - type: holiday\n    title: x\n"
	if err := os.WriteFile(filepath.Join(dir, "schedule.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected validation error for unknown schedule type")
	}
}
