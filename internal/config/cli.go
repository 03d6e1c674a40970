package config

import "fmt"

// cliArgs holds the subset of CLI flags spec.md §6 recognises, each
// optional; a zero value means "not supplied" and must not override the
// config-file value.
type cliArgs struct {
	config               *string
	host                 *string
	port                 *int
	apiKey               *string
	modelProvider        *string
	openaiAPIKey         *string
	openaiBaseURL        *string
	claudeAPIKey         *string
	claudeBaseURL        *string
	kiroOAuthCredsFile   *string
	kiroOAuthCredsBase64 *string
	geminiOAuthCredsFile *string
	projectID            *string
	qwenOAuthCredsFile   *string
	logPrompts           *string
}

// ExtractConfigPath scans argv for --config ahead of the full parse, since
// the chosen path determines which file Load reads before CLI overlay runs.
func ExtractConfigPath(argv []string) string {
	for i, flag := range argv {
		if flag == "--config" && i+1 < len(argv) {
			return argv[i+1]
		}
	}
	return ""
}

// ParseCLIArgs walks argv (as os.Args[1:]) looking for the `--flag value`
// pairs spec.md §6 lists. Unknown flags are ignored rather than erroring,
// matching the original Rust parser's permissiveness.
func ParseCLIArgs(argv []string) (cliArgs, error) {
	var out cliArgs
	for i := 0; i < len(argv); i++ {
		flag := argv[i]
		next := func() (string, error) {
			if i+1 >= len(argv) {
				return "", fmt.Errorf("flag %s requires a value", flag)
			}
			i++
			return argv[i], nil
		}

		var err error
		switch flag {
		case "--config":
			out.config, err = strPtr(next())
		case "--host":
			out.host, err = strPtr(next())
		case "--port":
			var v string
			v, err = next()
			if err == nil {
				var p int
				p, err = parsePort(v)
				if err == nil {
					out.port = &p
				}
			}
		case "--api-key":
			out.apiKey, err = strPtr(next())
		case "--model-provider":
			out.modelProvider, err = strPtr(next())
		case "--openai-api-key":
			out.openaiAPIKey, err = strPtr(next())
		case "--openai-base-url":
			out.openaiBaseURL, err = strPtr(next())
		case "--claude-api-key":
			out.claudeAPIKey, err = strPtr(next())
		case "--claude-base-url":
			out.claudeBaseURL, err = strPtr(next())
		case "--kiro-oauth-creds-file":
			out.kiroOAuthCredsFile, err = strPtr(next())
		case "--kiro-oauth-creds-base64":
			out.kiroOAuthCredsBase64, err = strPtr(next())
		case "--gemini-oauth-creds-file":
			out.geminiOAuthCredsFile, err = strPtr(next())
		case "--project-id":
			out.projectID, err = strPtr(next())
		case "--qwen-oauth-creds-file":
			out.qwenOAuthCredsFile, err = strPtr(next())
		case "--log-prompts":
			out.logPrompts, err = strPtr(next())
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func strPtr(s string, err error) (*string, error) {
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MergeCLIArgs overlays non-nil CLI values onto cfg; CLI always wins.
func MergeCLIArgs(cfg *Config, args cliArgs) {
	if args.host != nil {
		cfg.Host = *args.host
	}
	if args.port != nil {
		cfg.Port = *args.port
	}
	if args.apiKey != nil {
		cfg.RequiredAPIKey = *args.apiKey
	}
	if args.modelProvider != nil {
		cfg.ModelProvider = *args.modelProvider
	}
	if args.openaiAPIKey != nil {
		cfg.OpenAIAPIKey = *args.openaiAPIKey
	}
	if args.openaiBaseURL != nil {
		cfg.OpenAIBaseURL = *args.openaiBaseURL
	}
	if args.claudeAPIKey != nil {
		cfg.ClaudeAPIKey = *args.claudeAPIKey
	}
	if args.claudeBaseURL != nil {
		cfg.ClaudeBaseURL = *args.claudeBaseURL
	}
	if args.kiroOAuthCredsFile != nil {
		cfg.KiroOAuthCredsFilePath = *args.kiroOAuthCredsFile
	}
	if args.kiroOAuthCredsBase64 != nil {
		cfg.KiroOAuthCredsBase64 = *args.kiroOAuthCredsBase64
	}
	if args.geminiOAuthCredsFile != nil {
		cfg.GeminiOAuthCredsFilePath = *args.geminiOAuthCredsFile
	}
	if args.projectID != nil {
		cfg.ProjectID = *args.projectID
	}
	if args.qwenOAuthCredsFile != nil {
		cfg.QwenOAuthCredsFilePath = *args.qwenOAuthCredsFile
	}
	if args.logPrompts != nil {
		cfg.PromptLogMode = "file"
	}
}
