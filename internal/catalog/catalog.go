// Package catalog holds the read-only reference data: quick-access services, work
// shortcuts, the default chatbot list, and the schedule/news dataset.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"assistant/internal/chat"
)

//go:embed data/*.yaml
var embedded embed.FS

// Service is a chatbot service offered in the quick-access list.
type Service struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Favorite    bool   `yaml:"favorite"`
}

// WorkItem is a work shortcut.
type WorkItem struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// ScheduleType classifies a schedule entry.
type ScheduleType string

const (
	ScheduleVacation    ScheduleType = "vacation"
	ScheduleBusiness    ScheduleType = "business"
	ScheduleAnniversary ScheduleType = "anniversary"
)

// ScheduleDetails is the optional extra block of a schedule entry.
type ScheduleDetails struct {
	Duration string `yaml:"duration"`
	Location string `yaml:"location,omitempty"`
	Notes    string `yaml:"notes,omitempty"`
}

// ScheduleItem is one upcoming calendar-like entry.
type ScheduleItem struct {
	Type      ScheduleType     `yaml:"type"`
	Title     string           `yaml:"title"`
	Date      string           `yaml:"date"`
	StartDate string           `yaml:"startDate"`
	Message   string           `yaml:"message,omitempty"`
	Details   *ScheduleDetails `yaml:"details,omitempty"`
}

// Start parses StartDate (YYYY-MM-DD) in the local time zone.
func (s ScheduleItem) Start() (time.Time, bool) {
	if strings.TrimSpace(s.StartDate) == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s.StartDate), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NewsItem is a headline.
type NewsItem struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Source  string `yaml:"source"`
	URL     string `yaml:"url"`
	Date    string `yaml:"date"`
	Topic   string `yaml:"topic"`
}

// Catalog bundles all reference data. It is never mutated after Load.
type Catalog struct {
	Services  []Service      `yaml:"services"`
	WorkItems []WorkItem     `yaml:"workItems"`
	Chatbots  []chat.Chatbot `yaml:"chatbots"`
	Schedule  []ScheduleItem `yaml:"schedule"`
	News      []NewsItem     `yaml:"news"`
}

var files = []string{"services.yaml", "work_items.yaml", "chatbots.yaml", "schedule.yaml", "news.yaml"}

// Load parses the embedded data set.
func Load() (*Catalog, error) {
	c := &Catalog{}
	for _, name := range files {
		data, err := embedded.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		if err := c.merge(name, data); err != nil {
			return nil, err
		}
	}
	return c, c.validate()
}

// LoadDir parses the embedded data and then overlays any of the same file names
// found in dir. A section present in an overlay file replaces the embedded one.
func LoadDir(dir string) (*Catalog, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return c, nil
	}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		if err := c.merge(name, data); err != nil {
			return nil, err
		}
	}
	return c, c.validate()
}

// MustLoad is Load for package-level defaults and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) merge(name string, data []byte) error {
	var part Catalog
	if err := yaml.Unmarshal(data, &part); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", name, err)
	}
	if part.Services != nil {
		c.Services = part.Services
	}
	if part.WorkItems != nil {
		c.WorkItems = part.WorkItems
	}
	if part.Chatbots != nil {
		c.Chatbots = part.Chatbots
	}
	if part.Schedule != nil {
		c.Schedule = part.Schedule
	}
	if part.News != nil {
		c.News = part.News
	}
	return nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for _, s := range c.Services {
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("catalog: service id %q empty or duplicated", s.ID)
		}
		seen[s.ID] = true
	}
	seen = map[string]bool{}
	for _, w := range c.WorkItems {
		if w.ID == "" || seen[w.ID] {
			return fmt.Errorf("catalog: work item id %q empty or duplicated", w.ID)
		}
		seen[w.ID] = true
	}
	for _, s := range c.Schedule {
		switch s.Type {
		case ScheduleVacation, ScheduleBusiness, ScheduleAnniversary:
		default:
			return fmt.Errorf("catalog: schedule %q has unknown type %q", s.Title, s.Type)
		}
	}
	return nil
}

// DefaultFavoriteServices returns the ids of services pre-marked favorite.
func (c *Catalog) DefaultFavoriteServices() []string {
	ids := []string{}
	for _, s := range c.Services {
		if s.Favorite {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// DefaultWorkItemFavorites is "1".."8": the first eight shortcuts.
func (c *Catalog) DefaultWorkItemFavorites() []string {
	ids := []string{}
	for i := 1; i <= 8; i++ {
		ids = append(ids, fmt.Sprint(i))
	}
	return ids
}

// DefaultChatbots returns a copy of the seed chatbot list.
func (c *Catalog) DefaultChatbots() []chat.Chatbot {
	return append([]chat.Chatbot(nil), c.Chatbots...)
}

// Service looks up a service by id.
func (c *Catalog) Service(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// WorkItem looks up a work shortcut by id.
func (c *Catalog) WorkItem(id string) (WorkItem, bool) {
	for _, w := range c.WorkItems {
		if w.ID == id {
			return w, true
		}
	}
	return WorkItem{}, false
}
