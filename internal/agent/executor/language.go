package executor

// DefaultLanguage is assumed for untagged blocks.
const DefaultLanguage = "sh"

type language struct {
	name      string
	extension string
	shell     bool
}

// normalizeLanguage maps a fence tag to a runnable language.
func normalizeLanguage(tag string) (language, bool) {
	switch tag {
	case "bash":
		return language{name: "bash", extension: "sh", shell: true}, true
	case "sh", "shell", "console", "zsh":
		return language{name: "sh", extension: "sh", shell: true}, true
	case "python", "python3", "py":
		return language{name: "python", extension: "py"}, true
	default:
		return language{}, false
	}
}

// SupportedLanguages lists the accepted fence tags.
func SupportedLanguages() []string {
	return []string{"bash", "sh", "shell", "console", "zsh", "python", "python3", "py"}
}
