package service

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var adjectives = []string{
	"Swift", "Brave", "Clever", "Bold", "Wise", "Quick", "Sharp", "Bright",
	"Strong", "Fast", "Smart", "Cool", "Epic", "Wild", "Free", "Pure",
	"Dark", "Light", "Fire", "Ice", "Storm", "Wind", "Star", "Moon",
	"Sun", "Sky", "Ocean", "River", "Mountain", "Forest", "Desert", "Valley",
}

var nouns = []string{
	"Tiger", "Eagle", "Wolf", "Lion", "Bear", "Fox", "Hawk", "Shark",
	"Dragon", "Phoenix", "Falcon", "Panther", "Viper", "Raven", "Lynx", "Cobra",
	"Hunter", "Warrior", "Knight", "Ranger", "Scout", "Guardian", "Champion", "Hero",
	"Ninja", "Samurai", "Wizard", "Mage", "Archer", "Rider", "Pilot", "Captain",
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// GenerateUsername returns <Adjective><Noun><1..9999>.
func GenerateUsername() string {
	return fmt.Sprintf("%s%s%d",
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
		rand.Intn(9999)+1,
	)
}

func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// GenerateReferralCode is the last 8 characters of the user id followed by
// the base36 creation time, upper-cased.
func GenerateReferralCode(id uuid.UUID, at time.Time) string {
	s := id.String()
	return strings.ToUpper(s[len(s)-8:] + strconv.FormatInt(at.UnixMilli(), 36))
}
