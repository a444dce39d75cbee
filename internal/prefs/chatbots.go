package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"assistant/internal/chat"
	"assistant/internal/logging"
	"assistant/internal/storage"
)

// ErrEmptyName is returned when a chatbot is saved without a name.
var ErrEmptyName = errors.New("chatbot name is empty")

// ChatbotStore manages the chatbots array shown in the chatbot management modal.
type ChatbotStore struct {
	kv       storage.KV
	log      *slog.Logger
	defaults []chat.Chatbot

	mu     sync.Mutex
	bots   []chat.Chatbot
	loaded bool
}

func NewChatbotStore(kv storage.KV, defaults []chat.Chatbot, log *slog.Logger) *ChatbotStore {
	return &ChatbotStore{
		kv:       kv,
		log:      logging.OrNop(log),
		defaults: append([]chat.Chatbot(nil), defaults...),
	}
}

// List returns every chatbot in stored order.
func (c *ChatbotStore) List() []chat.Chatbot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Chatbot(nil), c.loadLocked()...)
}

// Favorites returns the chatbots marked favorite.
func (c *ChatbotStore) Favorites() []chat.Chatbot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chat.Chatbot
	for _, b := range c.loadLocked() {
		if b.IsFavorite {
			out = append(out, b)
		}
	}
	return out
}

// Get looks up a chatbot by id.
func (c *ChatbotStore) Get(id string) (chat.Chatbot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.bots[i], true
	}
	return chat.Chatbot{}, false
}

// Add appends a chatbot owned by the current user. A blank id gets a fresh one;
// a blank visibility becomes personal.
func (c *ChatbotStore) Add(bot chat.Chatbot) (chat.Chatbot, error) {
	bot.Name = strings.TrimSpace(bot.Name)
	if bot.Name == "" {
		return chat.Chatbot{}, ErrEmptyName
	}
	if err := validVisibility(&bot); err != nil {
		return chat.Chatbot{}, err
	}
	if strings.TrimSpace(bot.ID) == "" {
		bot.ID = chat.NewID()
	}
	bot.IsOwner = true

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	if c.indexLocked(bot.ID) >= 0 {
		return chat.Chatbot{}, fmt.Errorf("chatbot %q already exists", bot.ID)
	}
	c.bots = append(c.bots, bot)
	return bot, c.persistLocked()
}

// Update replaces the chatbot with the same id. Unknown ids are a no-op and
// report false.
func (c *ChatbotStore) Update(bot chat.Chatbot) (bool, error) {
	bot.Name = strings.TrimSpace(bot.Name)
	if bot.Name == "" {
		return false, ErrEmptyName
	}
	if err := validVisibility(&bot); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	i := c.indexLocked(bot.ID)
	if i < 0 {
		return false, nil
	}
	bot.IsOwner = c.bots[i].IsOwner
	c.bots[i] = bot
	return true, c.persistLocked()
}

// Delete removes a chatbot. Unknown ids report false.
func (c *ChatbotStore) Delete(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	i := c.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	c.bots = append(c.bots[:i], c.bots[i+1:]...)
	return true, c.persistLocked()
}

// ToggleFavorite flips IsFavorite and returns the updated chatbot.
func (c *ChatbotStore) ToggleFavorite(id string) (chat.Chatbot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	i := c.indexLocked(id)
	if i < 0 {
		return chat.Chatbot{}, false, nil
	}
	c.bots[i].IsFavorite = !c.bots[i].IsFavorite
	return c.bots[i], true, c.persistLocked()
}

func (c *ChatbotStore) loadLocked() []chat.Chatbot {
	if c.loaded {
		return c.bots
	}
	c.loaded = true
	var stored []chat.Chatbot
	if readJSON(c.kv, c.log, storage.KeyChatbots, &stored) && stored != nil {
		c.bots = stored
		return c.bots
	}
	c.bots = append([]chat.Chatbot(nil), c.defaults...)
	if err := c.persistLocked(); err != nil {
		c.log.Error("persist seeded chatbots failed", "error", err)
	}
	return c.bots
}

func (c *ChatbotStore) indexLocked(id string) int {
	for i, b := range c.loadLocked() {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (c *ChatbotStore) persistLocked() error {
	bots := c.bots
	if bots == nil {
		bots = []chat.Chatbot{}
	}
	return writeJSON(c.kv, storage.KeyChatbots, bots)
}

func validVisibility(bot *chat.Chatbot) error {
	switch bot.Visibility {
	case "":
		bot.Visibility = chat.VisibilityPersonal
	case chat.VisibilityPersonal, chat.VisibilityTeam, chat.VisibilityPublic:
	default:
		return fmt.Errorf("invalid visibility %q", bot.Visibility)
	}
	return nil
}
