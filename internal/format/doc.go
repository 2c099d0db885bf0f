// Package format provides the presentation helpers used by chat front ends:
// relative message times, name initials and avatar colors.
package format
