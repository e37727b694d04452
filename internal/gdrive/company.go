package gdrive

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultCompanyName is used when no company can be identified
const DefaultCompanyName = "Company"

var companyURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`linkedin\.com/company/([^/]+)`),
	regexp.MustCompile(`jobs\.([^./]+)\.`),
	regexp.MustCompile(`careers\.([^./]+)\.`),
	regexp.MustCompile(`([^./]+)\.com/careers`),
	regexp.MustCompile(`([^./]+)\.com/jobs`),
}

var companyTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:at|join|for)\s+([A-Z][a-zA-Z\s&]+?)(?:\s+is|\s+are|\s+-|\s+in|\.|,)`),
	regexp.MustCompile(`([A-Z][a-zA-Z\s&]+?)\s+(?:is hiring|seeks|looking for)`),
	regexp.MustCompile(`Company:\s*([A-Z][a-zA-Z\s&]+)`),
}

// ExtractCompanyName guesses the hiring company from the job URL, then the first
// 500 characters of the description. It never returns an empty string.
func ExtractCompanyName(jobDescription, jobURL string) string {
	for _, re := range companyURLPatterns {
		m := re.FindStringSubmatch(jobURL)
		if m == nil {
			continue
		}
		company := titleCase(strings.ReplaceAll(m[1], "-", " "))
		if len(company) > 3 {
			return company
		}
	}

	head := jobDescription
	if r := []rune(head); len(r) > 500 {
		head = string(r[:500])
	}
	for _, re := range companyTextPatterns {
		m := re.FindStringSubmatch(head)
		if m == nil {
			continue
		}
		company := strings.TrimSpace(m[1])
		if len(company) > 3 && len(company) < 50 {
			return company
		}
	}

	return DefaultCompanyName
}

func titleCase(s string) string {
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if upper {
				sb.WriteRune(unicode.ToUpper(r))
			} else {
				sb.WriteRune(unicode.ToLower(r))
			}
			upper = false
			continue
		}
		sb.WriteRune(r)
		upper = true
	}
	return sb.String()
}
