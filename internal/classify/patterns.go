package classify

import "regexp"

// Pattern families are additive: extending coverage means appending here,
// never touching call sites. Each family is compiled once at package init.

// identifierPatterns match personally identifying tokens.
var identifierPatterns = []*regexp.Regexp{
	// US SSN / tax-id shaped numbers, with or without separators.
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{3}\s\d{2}\s\d{4}\b`),
	regexp.MustCompile(`\b\d{2}-\d{7}\b`), // EIN

	// Email addresses.
	regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),

	// US phone numbers: (555) 123-4567, 555-123-4567, 555.123.4567, +1 555 123 4567.
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}`),
	regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
	regexp.MustCompile(`\+1[\s-]?\d{3}[\s-]?\d{3}[\s-]?\d{4}`),

	// Street addresses: number + name + suffix.
	regexp.MustCompile(`(?i)\b\d{1,6}\s+[A-Za-z0-9.\s]{2,40}\s(street|st|avenue|ave|boulevard|blvd|drive|dr|lane|ln|road|rd|court|ct|way|place|pl)\b`),

	// Dates of birth spelled out next to a date.
	regexp.MustCompile(`(?i)\b(date of birth|dob|born on)\b[:\s]*\d`),

	// Payment card numbers (13-16 digits, optionally grouped).
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
}

// medicalPatterns match diagnoses, treatments, and procedure vocabulary.
// ICD-10 and CPT shaped codes are included because intake transcripts quote
// them from medical records.
var medicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(diagnos(is|es|ed)|prognosis|symptom(s)?|condition)\b`),
	regexp.MustCompile(`(?i)\b(treatment|therapy|surgery|operation|procedure|prescri(bed|ption))\b`),
	regexp.MustCompile(`(?i)\b(injur(y|ies|ed)|fracture(d|s)?|concussion|whiplash|laceration|contusion)\b`),
	regexp.MustCompile(`(?i)\b(hospital(ized)?|emergency room|urgent care|icu|ambulance|paramedic)\b`),
	regexp.MustCompile(`(?i)\b(physician|doctor|surgeon|chiropractor|physical therap(y|ist)|radiolog(y|ist))\b`),
	regexp.MustCompile(`(?i)\b(mri|ct scan|x-ray|ultrasound|biopsy)\b`),
	regexp.MustCompile(`(?i)\b(medication|painkiller|opioid|antibiotic|anesthesia)\b`),
	regexp.MustCompile(`(?i)\b(traumatic brain injury|tbi|ptsd|chronic pain|herniated disc|spinal)\b`),
	regexp.MustCompile(`\b[A-TV-Z]\d{2}(\.\d{1,4})?\b`), // ICD-10
	regexp.MustCompile(`(?i)\bcpt\s?\d{5}\b`),           // CPT when labeled
}

// prohibitedPatterns match phrasing that reads as legal advice or outcome
// guarantees; intake transcripts containing these are escalated for human
// review before anything reaches the client.
var prohibitedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou (will|are going to) win\b`),
	regexp.MustCompile(`(?i)\bguarantee(d)?\s+(a\s+)?(win|settlement|outcome|compensation)\b`),
	regexp.MustCompile(`(?i)\bmy legal advice\b`),
	regexp.MustCompile(`(?i)\byou should (sue|file a lawsuit|reject the offer)\b`),
	regexp.MustCompile(`(?i)\byour case is worth\b`),
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
