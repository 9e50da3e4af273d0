package config

// DefaultPresets returns the built-in prompt presets keyed by id. Presets
// from the config file are merged over these.
func DefaultPresets() map[string]PromptPreset {
	return map[string]PromptPreset{
		"general": {
			Name: "General",
			System: "Translate the user's text into fluent, grammatically correct English. " +
				"Preserve the meaning, tone and formatting. Reply with the translation only.",
		},
		"formal": {
			Name: "Formal",
			System: "Translate the user's text into formal business English suitable for " +
				"official correspondence. Reply with the translation only.",
		},
		"twitter": {
			Name: "Twitter",
			System: "Translate the user's text into concise, natural English suitable for a " +
				"social media post. Keep hashtags and mentions. Reply with the translation only.",
		},
		"academic": {
			Name: "Academic",
			System: "Translate the user's text into precise academic English. Keep terminology " +
				"consistent and do not simplify. Reply with the translation only.",
		},
		"creative": {
			Name: "Creative",
			System: "Translate the user's text into expressive, idiomatic English, adapting " +
				"idioms rather than translating them literally. Reply with the translation only.",
		},
	}
}
