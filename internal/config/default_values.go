package config

const (
	DefaultModel              = "gpt-4o-mini"
	DefaultProviderTimeoutMS  = 60000
	DefaultProviderMaxRetries = 2
	DefaultContextTokens      = 8000

	DefaultMockDelayMS    = 1500
	DefaultReplyTimeoutMS = 30000
)
