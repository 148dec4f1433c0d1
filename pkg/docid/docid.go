package docid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samborkent/uuidv7"
)

const legacyRoundPrefix = "jornada_"

// NewReminderID returns a time-ordered id so reminder documents sort by creation.
func NewReminderID() string {
	return uuidv7.New().String()
}

// RoundKey is the canonical document id for a round and for a user's prediction of it.
func RoundKey(round int) string {
	return strconv.Itoa(round)
}

// LegacyRoundKey is the prefixed id older clients wrote predictions under.
func LegacyRoundKey(round int) string {
	return legacyRoundPrefix + strconv.Itoa(round)
}

// ParseRoundKey accepts both conventions and reports which one it saw.
func ParseRoundKey(key string) (round int, legacy bool, err error) {
	raw := key
	if strings.HasPrefix(key, legacyRoundPrefix) {
		raw = strings.TrimPrefix(key, legacyRoundPrefix)
		legacy = true
	}
	round, err = strconv.Atoi(raw)
	if err != nil || round <= 0 {
		return 0, false, fmt.Errorf("not a round key: %q", key)
	}
	return round, legacy, nil
}
