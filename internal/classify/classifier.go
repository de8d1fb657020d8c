// Package classify labels free text for regulated sensitivity.
//
// Classification runs on every inbound message before the synchronous
// conversation write, so it is a pure function: no I/O, no allocation
// beyond the result, patterns compiled once at init. False positives
// over-encrypt, which is acceptable; false negatives leak, which is not,
// so the pattern set errs conservative.
package classify

// Level is the sensitivity level assigned to a piece of text.
type Level string

const (
	LevelPublic       Level = "public"
	LevelInternal     Level = "internal"
	LevelConfidential Level = "confidential"
	LevelRestricted   Level = "restricted"
)

// Classification is the derived sensitivity of one input string. It is
// computed fresh per input and never persisted on its own.
//
// Invariants:
//   - ContainsPHI implies ContainsPII and ContainsMedicalInfo
//     (PHI is defined as PII co-occurring with medical context)
//   - Level == LevelRestricted exactly when ContainsPHI
type Classification struct {
	ContainsPII         bool  `json:"contains_pii"`
	ContainsPHI         bool  `json:"contains_phi"`
	ContainsMedicalInfo bool  `json:"contains_medical_info"`
	Level               Level `json:"level"`
	RequiresEncryption  bool  `json:"requires_encryption"`

	// ProhibitedContent flags phrasing the platform must never produce or
	// store unredacted (e.g. language reading as legal advice). Advisory
	// only; it does not affect Level.
	ProhibitedContent bool `json:"prohibited_content,omitempty"`
}

// Classify scans text against the identifier and medical pattern families
// and derives the sensitivity level.
func Classify(text string) Classification {
	c := Classification{
		ContainsPII:         matchesAny(identifierPatterns, text),
		ContainsMedicalInfo: matchesAny(medicalPatterns, text),
		ProhibitedContent:   matchesAny(prohibitedPatterns, text),
	}

	c.ContainsPHI = c.ContainsPII && c.ContainsMedicalInfo

	switch {
	case c.ContainsPHI:
		c.Level = LevelRestricted
	case c.ContainsPII || c.ContainsMedicalInfo:
		c.Level = LevelConfidential
	case len(text) > 0:
		c.Level = LevelInternal
	default:
		c.Level = LevelPublic
	}

	c.RequiresEncryption = c.ContainsPII || c.ContainsMedicalInfo

	return c
}

// MostRestrictive is the classification assigned when the pattern engine
// itself cannot run: never treat unclassifiable text as public.
func MostRestrictive() Classification {
	return Classification{
		ContainsPII:         true,
		ContainsPHI:         true,
		ContainsMedicalInfo: true,
		Level:               LevelRestricted,
		RequiresEncryption:  true,
	}
}
