package hotkeys

// Shortcuts owned by the operating system or its shell.
var reservedByPlatform = map[Platform][]string{
	Windows: {
		"Alt+Tab", "Alt+F4", "Ctrl+Alt+Delete", "Win+L", "Win+Tab",
		"Ctrl+Shift+Esc", "Alt+Esc", "Ctrl+Esc", "Win+D", "Win+E", "Win+R",
	},
	MacOS: {
		"Cmd+Q", "Cmd+W", "Cmd+Space", "Cmd+Tab", "Cmd+Shift+3",
		"Cmd+Shift+4", "Cmd+Shift+5", "Cmd+H", "Cmd+Alt+Esc", "Cmd+M",
	},
	Linux: {
		"Alt+Tab", "Alt+F4", "Ctrl+Alt+Delete", "Ctrl+Alt+L",
		"Ctrl+Alt+T", "Alt+F2", "Super+L",
	},
}

// Editing shortcuts the translator itself simulates. Binding one of them
// globally would swallow the simulated copy or paste.
var editingShortcuts = map[Platform][]string{
	Windows: {"Ctrl+C", "Ctrl+V", "Ctrl+X", "Ctrl+A", "Ctrl+Z", "Ctrl+Y"},
	Linux:   {"Ctrl+C", "Ctrl+V", "Ctrl+X", "Ctrl+A", "Ctrl+Z", "Ctrl+Y"},
	MacOS:   {"Cmd+C", "Cmd+V", "Cmd+X", "Cmd+A", "Cmd+Z", "Cmd+Shift+Z"},
}

// reservedTables is built once at package init; it is never mutated.
var reservedTables = buildReservedTables()

func buildReservedTables() map[Platform]map[string]struct{} {
	tables := make(map[Platform]map[string]struct{}, len(reservedByPlatform))
	for _, p := range []Platform{Windows, MacOS, Linux} {
		table := make(map[string]struct{})
		for _, s := range reservedByPlatform[p] {
			table[MustParseKeyCombo(s).String()] = struct{}{}
		}
		for _, s := range editingShortcuts[p] {
			table[MustParseKeyCombo(s).String()] = struct{}{}
		}
		tables[p] = table
	}
	return tables
}

// ReservedCombos lists the reserved combos of p in canonical form.
func ReservedCombos(p Platform) []string {
	out := make([]string, 0, len(reservedTables[p]))
	for s := range reservedTables[p] {
		out = append(out, s)
	}
	return out
}
