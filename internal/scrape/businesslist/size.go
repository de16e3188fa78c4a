package businesslist

import (
	"strconv"
	"strings"

	"leadscout/internal/domain"
)

// ClassifySize buckets an employee-count token, either "n" or "lo-hi".
// Anything that is not one or two integers is Unknown.
func ClassifySize(token string) domain.CompanySize {
	token = strings.TrimSpace(token)

	if strings.Contains(token, "-") {
		parts := strings.Split(token, "-")
		if len(parts) != 2 {
			return domain.SizeUnknown
		}
		lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return domain.SizeUnknown
		}
		switch {
		case hi <= 50:
			return domain.SizeSmall
		case lo >= 100 && lo <= 500:
			return domain.SizeMedium
		case lo > 500:
			return domain.SizeLarge
		default:
			return domain.SizeUnknown
		}
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return domain.SizeUnknown
	}
	switch {
	case n <= 50:
		return domain.SizeSmall
	case n >= 100 && n <= 500:
		return domain.SizeMedium
	case n > 500:
		return domain.SizeLarge
	default:
		return domain.SizeUnknown
	}
}
