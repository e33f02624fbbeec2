// Package normalize turns raw import titles into match fingerprints:
// bracket tokens become format hints, bundle titles split into their
// member films, and titles fold into comparison keys that ignore case,
// punctuation and diacritics.
package normalize
