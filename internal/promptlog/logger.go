// Package promptlog writes conversation input/output/error text to the
// console or a rotating file, per the operator's configured
// prompt_log_mode. Grounded on
// _examples/original_source/rust/src/logger.rs's ConversationLogger.
package promptlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/router-for-me/aigateway/internal/common"
)

type Mode string

const (
	ModeNone    Mode = "none"
	ModeConsole Mode = "console"
	ModeFile    Mode = "file"
)

// Logger writes timestamped conversation entries. ModeFile entries go to a
// lumberjack-rotated file named "{baseName}-{timestamp}.log", created once
// at startup per the teacher's generate_log_filename.
type Logger struct {
	mode Mode
	log  *logrus.Entry
	mu   sync.Mutex
	file *lumberjack.Logger
}

// New builds a Logger. mode selects the sink; baseName names the rotated
// file when mode is ModeFile (unrecognised mode strings fall back to
// ModeNone, matching the Rust constructor's catch-all arm).
func New(modeStr, baseName string, log *logrus.Entry) *Logger {
	var mode Mode
	switch modeStr {
	case "console":
		mode = ModeConsole
	case "file":
		mode = ModeFile
	default:
		mode = ModeNone
	}

	l := &Logger{mode: mode, log: log}
	if mode == ModeFile {
		l.file = &lumberjack.Logger{
			Filename:   fmt.Sprintf("%s-%s.log", baseName, timestamp().Format("20060102-150405")),
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		}
	}
	return l
}

// timestamp is a seam for injecting a fixed clock in tests.
var timestamp = time.Now

func (l *Logger) logConversation(logType, content string) {
	if l.mode == ModeNone || content == "" {
		return
	}
	entry := fmt.Sprintf("%s [%s]:\n%s\n--------------------------------------\n",
		timestamp().Format("2006-01-02 15:04:05"), logType, content)

	switch l.mode {
	case ModeConsole:
		if l.log != nil {
			l.log.Info(entry)
		}
	case ModeFile:
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			_, _ = l.file.Write([]byte(entry))
		}
	}
}

func (l *Logger) LogInput(content string)  { l.logConversation("INPUT", content) }
func (l *Logger) LogOutput(content string) { l.logConversation("OUTPUT", content) }
func (l *Logger) LogError(content string)  { l.logConversation("ERROR", content) }

// Close flushes and closes the rotated file, if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ExtractPromptFromRequest pulls human-readable prompt text out of a
// request body for logging, per client protocol.
func ExtractPromptFromRequest(request []byte, proto common.Protocol) string {
	root := gjson.ParseBytes(request)
	var lines []string

	switch proto {
	case common.ProtocolOpenAI:
		root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
			role, content := msg.Get("role").String(), msg.Get("content")
			if role != "" && content.Type == gjson.String {
				lines = append(lines, role+": "+content.String())
			}
			return true
		})

	case common.ProtocolClaude:
		if sys := root.Get("system"); sys.Exists() && sys.Type == gjson.String {
			lines = append(lines, "system: "+sys.String())
		}
		root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
			role := msg.Get("role").String()
			content := msg.Get("content")
			var text string
			if content.IsArray() {
				var parts []string
				content.ForEach(func(_, c gjson.Result) bool {
					if t := c.Get("text"); t.Exists() {
						parts = append(parts, t.String())
					}
					return true
				})
				text = strings.Join(parts, " ")
			} else {
				text = content.String()
			}
			if role != "" {
				lines = append(lines, role+": "+text)
			}
			return true
		})

	case common.ProtocolGemini:
		root.Get("systemInstruction.parts").ForEach(func(_, part gjson.Result) bool {
			if t := part.Get("text"); t.Exists() {
				lines = append(lines, "system: "+t.String())
			}
			return true
		})
		root.Get("contents").ForEach(func(_, content gjson.Result) bool {
			role := content.Get("role").String()
			var parts []string
			content.Get("parts").ForEach(func(_, p gjson.Result) bool {
				if t := p.Get("text"); t.Exists() {
					parts = append(parts, t.String())
				}
				return true
			})
			if role != "" && len(parts) > 0 {
				lines = append(lines, role+": "+strings.Join(parts, " "))
			}
			return true
		})
	}
	return strings.Join(lines, "\n")
}

// ExtractTextFromResponse pulls the assistant's output text out of a
// response body for logging, per client protocol.
func ExtractTextFromResponse(response []byte, proto common.Protocol) string {
	root := gjson.ParseBytes(response)
	var lines []string

	switch proto {
	case common.ProtocolOpenAI:
		root.Get("choices").ForEach(func(_, choice gjson.Result) bool {
			if c := choice.Get("message.content"); c.Exists() && c.Type == gjson.String {
				lines = append(lines, c.String())
			}
			return true
		})

	case common.ProtocolClaude:
		root.Get("content").ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "text" {
				lines = append(lines, block.Get("text").String())
			}
			return true
		})

	case common.ProtocolGemini:
		root.Get("candidates").ForEach(func(_, candidate gjson.Result) bool {
			var parts []string
			candidate.Get("content.parts").ForEach(func(_, p gjson.Result) bool {
				if t := p.Get("text"); t.Exists() {
					parts = append(parts, t.String())
				}
				return true
			})
			if len(parts) > 0 {
				lines = append(lines, strings.Join(parts, " "))
			}
			return true
		})
	}
	return strings.Join(lines, "\n")
}
