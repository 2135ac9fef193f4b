package herostore

import "strings"

// heroFields is the trimmed form of the five required text fields.
type heroFields struct {
	Nickname          string
	RealName          string
	OriginDescription string
	Superpowers       string
	CatchPhrase       string
}

// validateHeroFields trims the input and collects one message per missing
// field. It returns a *ValidationError listing every failure at once rather
// than stopping at the first, so a caller can surface the whole set.
func validateHeroFields(nickname, realName, originDescription, superpowers, catchPhrase string) (heroFields, error) {
	f := heroFields{
		Nickname:          strings.TrimSpace(nickname),
		RealName:          strings.TrimSpace(realName),
		OriginDescription: strings.TrimSpace(originDescription),
		Superpowers:       strings.TrimSpace(superpowers),
		CatchPhrase:       strings.TrimSpace(catchPhrase),
	}

	var details []string
	if f.Nickname == "" {
		details = append(details, "Nickname is required")
	}
	if f.RealName == "" {
		details = append(details, "Real name is required")
	}
	if f.OriginDescription == "" {
		details = append(details, "Origin description is required")
	}
	if f.Superpowers == "" {
		details = append(details, "Superpowers are required")
	}
	if f.CatchPhrase == "" {
		details = append(details, "Catch phrase is required")
	}

	if len(details) > 0 {
		return heroFields{}, &ValidationError{Details: details}
	}
	return f, nil
}
