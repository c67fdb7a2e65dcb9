// Package intent classifies user messages with an ordered table of regex rules.
//
// Classify trims and lower-cases the text, then returns the first rule whose
// word-boundary pattern matches. When nothing matches the reserved Fallback
// label is returned with confidence 0.5, so classification never fails.
//
// Rule order is part of the contract. Domain rule sets are added with
// Classifier.With, which appends after the existing rules.
package intent
