// Package classify implements the rule-based email classification engine.
//
// Rules are compiled and validated once at configuration load time and are
// immutable afterwards. Classification walks the rules in their configured
// order and returns the category of the first rule that matches; a message
// that matches no rule is Uncategorized.
package classify
