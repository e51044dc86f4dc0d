package profile

import "strings"

// Leagues lists the league tiers in upstream tier order (tier 0 is Bronze).
var Leagues = []string{
	"Bronze", "Silver", "Gold", "Sapphire", "Ruby",
	"Emerald", "Amethyst", "Pearl", "Obsidian", "Diamond",
}

// LeagueSynonyms maps localized tier names to the canonical English name.
var LeagueSynonyms = map[string]string{
	"bronce":    "Bronze",
	"plata":     "Silver",
	"oro":       "Gold",
	"zafiro":    "Sapphire",
	"rubí":      "Ruby",
	"rubi":      "Ruby",
	"esmeralda": "Emerald",
	"amatista":  "Amethyst",
	"perla":     "Pearl",
	"obsidiana": "Obsidian",
	"diamante":  "Diamond",
}

// LeagueName canonicalizes a league name in either locale. Unknown names return "".
func LeagueName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, " League"), " league")
	for _, l := range Leagues {
		if strings.EqualFold(l, s) {
			return l
		}
	}
	return LeagueSynonyms[strings.ToLower(s)]
}

// LeagueTier returns the league for an upstream numeric tier.
func LeagueTier(tier int) string {
	if tier < 0 || tier >= len(Leagues) {
		return ""
	}
	return Leagues[tier]
}
