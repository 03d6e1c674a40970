// Package common holds the types shared by every layer of the gateway: the
// protocol/provider enumerations, the unified message schema the converter
// library operates on, and the inbound authentication check.
package common

// Protocol is one of the three AI chat wire formats the gateway speaks.
type Protocol string

const (
	ProtocolOpenAI Protocol = "openai"
	ProtocolClaude Protocol = "claude"
	ProtocolGemini Protocol = "gemini"
)

// Provider is a short tag identifying a concrete backend service, e.g.
// "gemini-cli-oauth" or "claude-kiro-oauth". Every provider binds to exactly
// one native Protocol.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderClaude      Provider = "claude"
	ProviderQwenOAuth   Provider = "qwen-oauth"
	ProviderGeminiOAuth Provider = "gemini-cli-oauth"
	ProviderClaudeKiro  Provider = "claude-kiro-oauth"
)

// NativeProtocol returns the wire protocol a provider speaks natively.
func (p Provider) NativeProtocol() Protocol {
	switch p {
	case ProviderOpenAI, ProviderQwenOAuth:
		return ProtocolOpenAI
	case ProviderClaude, ProviderClaudeKiro:
		return ProtocolClaude
	case ProviderGeminiOAuth:
		return ProtocolGemini
	default:
		return ProtocolOpenAI
	}
}

// PayloadClass distinguishes the four shapes the converter library translates.
type PayloadClass string

const (
	ClassRequest     PayloadClass = "request"
	ClassResponse    PayloadClass = "response"
	ClassStreamChunk PayloadClass = "stream_chunk"
	ClassModelList   PayloadClass = "model_list"
)

// SystemPromptMode controls how an operator-configured system prompt is
// merged with the one a client already sent.
type SystemPromptMode string

const (
	SystemPromptNone      SystemPromptMode = "none"
	SystemPromptOverwrite SystemPromptMode = "overwrite"
	SystemPromptAppend    SystemPromptMode = "append"
)

// PromptLogMode controls where conversation logs are written.
type PromptLogMode string

const (
	PromptLogNone    PromptLogMode = "none"
	PromptLogConsole PromptLogMode = "console"
	PromptLogFile    PromptLogMode = "file"
)
