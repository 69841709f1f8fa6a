package reference

import "strings"

const (
	clinicalQuestionMarker = "In your clinical question"
	clinicalPearlsMarker   = "Clinical Pearls"
	testsMarker            = "Tests recommended"
	diagnosticsMarker      = "Diagnostics"

	// ClinicalQuestionKey is the label under which a clinical-question section
	// lists the information a referral note should include.
	ClinicalQuestionKey = "In your clinical question, or current note, please include information on"
)

// Content is the flattened content of a reference template.
type Content struct {
	AssessmentFields []string `json:"assessment_fields"`
	DiagnosticFields []string `json:"diagnostic_fields"`
	ClinicalPearls   []string `json:"clinical_pearls"`
}

// sectionRule extracts content from the sections it matches.
type sectionRule struct {
	name    string
	matches func(text string) bool
	apply   func(s Section, c *Content)
}

// Rule order matters: a section is handled by the first rule that matches
// its text, even when a later rule would match too.
var sectionRules = []sectionRule{
	{
		name: "clinical-question",
		matches: func(text string) bool {
			return strings.Contains(text, clinicalQuestionMarker)
		},
		apply: extractClinicalQuestion,
	},
	{
		name: "clinical-pearls",
		matches: func(text string) bool {
			return strings.Contains(text, clinicalPearlsMarker)
		},
		apply: extractClinicalPearls,
	},
	{
		name: "diagnostics",
		matches: func(text string) bool {
			return strings.Contains(text, testsMarker) || strings.Contains(text, diagnosticsMarker)
		},
		apply: extractDiagnostics,
	},
}

// Extract flattens a reference template into assessment, diagnostic and
// clinical-pearl lists. Entries keep the order in which they appear and
// duplicates are retained. Sections or fields with an unexpected shape are
// skipped.
func Extract(t Template) Content {
	c := Content{
		AssessmentFields: []string{},
		DiagnosticFields: []string{},
		ClinicalPearls:   []string{},
	}

	for _, s := range t {
		text := s.Text()
		for _, rule := range sectionRules {
			if rule.matches(text) {
				rule.apply(s, &c)
				break
			}
		}
	}
	return c
}

func extractClinicalQuestion(s Section, c *Content) {
	info, ok := s.Entries.Get(ClinicalQuestionKey)
	if !ok {
		return
	}

	switch info := info.(type) {
	case ListValue:
		c.AssessmentFields = append(c.AssessmentFields, info...)
	case MapValue:
		if v, ok := info.Get("Assessments"); ok {
			c.AssessmentFields = appendRequiredOptional(c.AssessmentFields, v)
		}
		if v, ok := info.Get("Diagnostics"); ok {
			c.DiagnosticFields = appendRequiredOptional(c.DiagnosticFields, v)
		}
	}
}

// appendRequiredOptional appends a plain list, or the "Required" entries
// followed by the "Optional" entries of a mapping.
func appendRequiredOptional(dst []string, v Value) []string {
	switch v := v.(type) {
	case ListValue:
		return append(dst, v...)
	case MapValue:
		for _, key := range []string{"Required", "Optional"} {
			if list, ok := listAt(v, key); ok {
				dst = append(dst, list...)
			}
		}
	}
	return dst
}

func extractClinicalPearls(s Section, c *Content) {
	pearls, ok := s.Entries.Get(clinicalPearlsMarker)
	if !ok {
		return
	}

	switch pearls := pearls.(type) {
	case MapValue:
		c.ClinicalPearls = append(c.ClinicalPearls, pearls.Keys()...)
	case ListValue:
		c.ClinicalPearls = append(c.ClinicalPearls, pearls...)
	}
}

func extractDiagnostics(s Section, c *Content) {
	for _, e := range s.Entries {
		if !strings.Contains(e.Key, testsMarker) && !strings.Contains(e.Key, diagnosticsMarker) {
			continue
		}
		switch v := e.Value.(type) {
		case ListValue:
			c.DiagnosticFields = append(c.DiagnosticFields, v...)
		case MapValue:
			c.DiagnosticFields = append(c.DiagnosticFields, v.Keys()...)
		}
	}
}

func listAt(m MapValue, key string) (ListValue, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	list, ok := v.(ListValue)
	return list, ok
}
