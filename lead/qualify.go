package lead

import "github.com/isethius/Autowebsites-sub001/campaign"

// Qualify reports whether a discovered lead should proceed past the
// qualification phase. Pure filter: no I/O, no mutation.
//
// A lead with no website qualifies when the config includes
// no-website businesses. A lead whose site scores at or below the
// threshold qualifies when the config includes poor-website businesses.
// A lead with a site above the threshold never qualifies; there is
// nothing to pitch.
func Qualify(l *Lead, cfg campaign.Config) bool {
	if !l.HasWebsite() {
		return cfg.IncludeNoWebsite
	}
	if l.WebsiteScore <= cfg.ScoreThreshold {
		return cfg.IncludePoorWebsite
	}
	return false
}
