package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is a classification label assigned to an email message.
type Category string

// Uncategorized is the fallback category for messages no rule matches.
// It is never configured as a rule; it always sorts last in priority.
const Uncategorized Category = "Uncategorized"

// Rule is a single compiled classification rule. A rule matches a message
// when any of its keyword, sender-domain or subject-pattern conditions hold.
type Rule struct {
	// Category is the label assigned when this rule matches.
	Category Category

	// keywords are matched as case-insensitive substrings of subject+body.
	keywords []string

	// senderDomains match when the sender's domain equals or ends with an
	// entry, so "company.com" also covers "mail.company.com".
	senderDomains []string

	// subjectPattern is an optional case-insensitive, unanchored regexp
	// matched against the subject. Nil when the rule has no pattern.
	subjectPattern *regexp.Regexp
}

// CompileRule builds a Rule from its raw configuration values. Keywords and
// domains are lower-cased once here so classification never allocates for
// case folding. An invalid subject pattern is a compile-time error; rules
// are never compiled per message.
func CompileRule(category string, keywords, senderDomains []string, subjectPattern string) (Rule, error) {
	if category == "" {
		return Rule{}, fmt.Errorf("rule has no category name")
	}
	if Category(category) == Uncategorized {
		return Rule{}, fmt.Errorf("%q is reserved for the fallback category", Uncategorized)
	}

	r := Rule{Category: Category(category)}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			r.keywords = append(r.keywords, kw)
		}
	}
	for _, d := range senderDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			r.senderDomains = append(r.senderDomains, d)
		}
	}

	if subjectPattern != "" {
		re, err := regexp.Compile("(?i)" + subjectPattern)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: invalid subject pattern %q: %w", category, subjectPattern, err)
		}
		r.subjectPattern = re
	}

	if len(r.keywords) == 0 && len(r.senderDomains) == 0 && r.subjectPattern == nil {
		return Rule{}, fmt.Errorf("rule %q has no match conditions", category)
	}

	return r, nil
}

// Email is the subset of a parsed message the classifier inspects.
type Email struct {
	Sender  string
	Subject string
	Body    string
}

// Classifier applies an ordered rule set to messages. It is safe for
// concurrent use once constructed; rules are read-only.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier over the given rules. The slice order is the
// priority order; earlier rules win.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the category of the first rule matching the message, or
// Uncategorized. It is deterministic and never fails: empty fields simply
// don't match.
func (c *Classifier) Classify(e Email) Category {
	subject := strings.ToLower(e.Subject)
	body := strings.ToLower(e.Body)
	text := subject + " " + body
	domain := senderDomain(e.Sender)

	for _, r := range c.rules {
		if r.matches(e.Subject, text, domain) {
			return r.Category
		}
	}
	return Uncategorized
}

// matches reports whether any of the rule's conditions hold. text is the
// lower-cased subject+body; subject keeps its original case because the
// pattern is compiled case-insensitive anyway.
func (r *Rule) matches(subject, text, domain string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	if domain != "" {
		for _, d := range r.senderDomains {
			if strings.HasSuffix(domain, d) {
				return true
			}
		}
	}

	if r.subjectPattern != nil && subject != "" && r.subjectPattern.MatchString(subject) {
		return true
	}

	return false
}

// senderDomain extracts the lower-cased domain from an address that may be
// either bare ("bob@example.com") or display form ("Bob <bob@example.com>").
func senderDomain(sender string) string {
	addr := sender
	if start := strings.LastIndex(addr, "<"); start != -1 {
		if end := strings.LastIndex(addr, ">"); end > start {
			addr = addr[start+1 : end]
		}
	}
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
