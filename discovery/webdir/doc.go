// Package webdir discovers leads by scraping public business
// directories.
//
// A Directory issues one search per industry/location pair and walks
// the result cards with CSS selectors, so pointing it at a different
// directory is a matter of swapping Selectors. Each discovered lead's
// website is graded by an Auditor on five signals (TLS, viewport meta,
// title, contact details, copyright freshness); a site that fails to
// load grades at the floor, since a dead link is still a pitchable
// lead.
package webdir
