package contextmgr

import (
	"strings"
	"sync"
	"unicode"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"assistant/internal/chat"
)

// messageOverhead is the per-message framing the chat completions format adds.
const messageOverhead = 4

// Tokenizer 统计消息 token 数；BPE 不可用时退回估算
// Tokenizer counts tokens of chat messages. Without a BPE table it estimates.
type Tokenizer struct {
	encoding string
	mu       sync.Mutex
	bpe      *tiktoken.Tiktoken
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Tokenizer{}
)

// ForModel returns the shared tokenizer for the model's encoding. Loading the BPE
// table may touch the network the first time; failures fall back to estimation.
func ForModel(model string) *Tokenizer {
	enc := encodingFor(model)
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if t, ok := cache[enc]; ok {
		return t
	}
	t := &Tokenizer{encoding: enc}
	if bpe, err := tiktoken.GetEncoding(enc); err == nil {
		t.bpe = bpe
	}
	cache[enc] = t
	return t
}

// Estimator never loads a BPE table.
func Estimator() *Tokenizer {
	return &Tokenizer{encoding: "estimate"}
}

// Precise reports whether counts come from a real BPE table.
func (t *Tokenizer) Precise() bool { return t.bpe != nil }

func (t *Tokenizer) Encoding() string { return t.encoding }

// Text counts the tokens of s.
func (t *Tokenizer) Text(s string) int {
	if s == "" {
		return 0
	}
	if t.bpe == nil {
		return estimate(s)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bpe.Encode(s, nil, nil))
}

// Message counts one message with its framing. Sources stay local and are not counted.
func (t *Tokenizer) Message(m chat.Message) int {
	return messageOverhead + t.Text(string(m.Role)) + t.Text(m.Content)
}

// Messages sums Message over msgs.
func (t *Tokenizer) Messages(msgs []chat.Message) int {
	n := 0
	for _, m := range msgs {
		n += t.Message(m)
	}
	return n
}

// estimate 粗略估算：韩文音节约 1 token，汉字约 1.5，其余按每 4 字节 1 token
// estimate is a rough count: about one token per Hangul syllable, 1.5 per Han
// character, and one per four bytes of anything else.
func estimate(s string) int {
	var wide, han float64
	other := 0
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Hangul, r):
			wide++
		case unicode.Is(unicode.Han, r):
			han++
		default:
			other += len(string(r))
		}
	}
	n := int(wide + han*1.5 + float64(other)/4)
	if n < 1 {
		n = 1
	}
	return n
}

// encodingFor maps a model name onto its tiktoken encoding. Unknown names, which
// include most OpenAI-compatible local servers, use cl100k_base.
func encodingFor(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"gpt-4o", "chatgpt-4o", "gpt-4.1", "gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(m, prefix) {
			return "o200k_base"
		}
	}
	return "cl100k_base"
}
