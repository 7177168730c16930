package domain

// XPPerLevel is the amount of accumulated XP that advances one level.
const XPPerLevel = 1000

// BonesPerLevel is the bones credit granted for each level gained.
const BonesPerLevel = 10

// Recognized activity types.
const (
	ActivityChat             = "chat"
	ActivityFlashcard        = "flashcard"
	ActivityTest             = "test"
	ActivityTestPerfect      = "test_perfect"
	ActivityMatchGame        = "match_game"
	ActivityMatchGamePerfect = "match_game_perfect"
	ActivityVideo            = "video"
	ActivityUpload           = "upload"
	ActivityReadDocument     = "read_document"
)

// dailyCaps maps each recognized activity type to the maximum XP a user
// may earn from it within one calendar day. Activities absent from this
// table are uncapped.
var dailyCaps = map[string]int{
	ActivityChat:             250,
	ActivityFlashcard:        100,
	ActivityTest:             75,
	ActivityTestPerfect:      150,
	ActivityMatchGame:        50,
	ActivityMatchGamePerfect: 125,
	ActivityVideo:            100,
	ActivityUpload:           25,
	ActivityReadDocument:     60,
}

// DailyCap returns the configured daily cap for an activity type and
// whether one is configured at all. The second return value
// distinguishes "no cap configured" from a cap of zero, so callers never
// have to interpret an ambiguous numeric default.
func DailyCap(activityType string) (int, bool) {
	cap, ok := dailyCaps[activityType]
	return cap, ok
}

// LevelForXP derives the level for an accumulated XP total: every full
// XPPerLevel points advances one level, starting at level 1. Level is a
// pure function of total XP.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel returns how much more XP is needed to reach the next
// level from the given total.
func XPToNextLevel(xp int) int {
	if xp < 0 {
		return XPPerLevel
	}
	return XPPerLevel - xp%XPPerLevel
}
