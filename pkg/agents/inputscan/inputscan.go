// Package inputscan extracts common structured signals (age, guest count,
// budget amounts) from free-text party inputs.
package inputscan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/festa-dev/festa/pkg/models"
)

var (
	agePattern    = regexp.MustCompile(`(\d{1,2})\s*(?:year|yr)s?[\s-]*old`)
	guestPattern  = regexp.MustCompile(`(\d{1,3})\s*(?:guest|people|person|kid|child|children|friend)s?`)
	amountPattern = regexp.MustCompile(`(?:\$|budget\s*(?:of|is|:)?\s*\$?)\s*(\d+(?:\.\d+)?)`)
)

// Text returns the lower-cased concatenation of every input's content.
func Text(inputs []models.Input) string {
	parts := make([]string, 0, len(inputs))
	for _, input := range inputs {
		parts = append(parts, input.Content)
	}

	return strings.ToLower(strings.Join(parts, "\n"))
}

// Age returns the celebrated age when any input mentions one.
func Age(inputs []models.Input) (int, bool) {
	match := agePattern.FindStringSubmatch(Text(inputs))
	if match == nil {
		return 0, false
	}

	age, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}

	return age, true
}

// GuestCount returns the mentioned guest count when any input carries one.
func GuestCount(inputs []models.Input) (int, bool) {
	match := guestPattern.FindStringSubmatch(Text(inputs))
	if match == nil {
		return 0, false
	}

	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}

	return count, true
}

// Amount returns the last budget amount mentioned across the inputs. Later
// inputs win so feedback can revise an earlier figure.
func Amount(inputs []models.Input) (float64, bool) {
	matches := amountPattern.FindAllStringSubmatch(Text(inputs), -1)
	if len(matches) == 0 {
		return 0, false
	}

	amount, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, false
	}

	return amount, true
}
