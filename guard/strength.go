package guard

import "unicode"

// ComputeStrength scores a candidate password from 0 to 100, awarding 25
// points for each satisfied criterion: length of at least 8, an uppercase
// letter, a digit, and a symbol. The score is monotonic in the number of
// satisfied criteria; it feeds both the signup validation threshold and the
// strength meter on the signup page.
func ComputeStrength(password string) int {
	score := 0
	if len([]rune(password)) >= 8 {
		score += 25
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			hasSymbol = true
		}
	}

	if hasUpper {
		score += 25
	}
	if hasDigit {
		score += 25
	}
	if hasSymbol {
		score += 25
	}
	return score
}
