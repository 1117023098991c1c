package reconcile

import (
	"regexp"
	"strings"

	"covcheck/pkg/contracts/domain"
)

// asinPattern matches an ASIN in lower-cased text: literal "b0" and 8 alphanumerics
var asinPattern = regexp.MustCompile(`b0[a-z0-9]{8}`)

// ExtractAsinPair pulls the (Ad ASIN, Target ASIN) pair out of a campaign name.
// Matches are found left to right without overlap on the lower-cased text:
// no match gives (null, null), one match gives (match, null), and with two or
// more the first two are used and the rest ignored.
func ExtractAsinPair(campaignName string) domain.AsinPair {
	found := asinPattern.FindAllString(strings.ToLower(campaignName), 2)

	var pair domain.AsinPair
	if len(found) > 0 {
		pair.Ad = domain.NewCell(found[0])
	}
	if len(found) > 1 {
		pair.Target = domain.NewCell(found[1])
	}
	return pair
}

// extractCell applies ExtractAsinPair to a possibly null cell
func extractCell(c domain.Cell) domain.AsinPair {
	if !c.Valid {
		return domain.AsinPair{}
	}
	return ExtractAsinPair(c.Value)
}

// normalizeAsin lower-cases an ASIN cell; null stays null
func normalizeAsin(c domain.Cell) domain.Cell {
	if !c.Valid {
		return c
	}
	return domain.NewCell(strings.ToLower(c.Value))
}
