package blocklist

// defaultHosts is the embedded fallback rule set, used when no remote list is
// configured or reachable. It covers the ad and analytics domains that most
// often inject late-loading content into captures.
var defaultHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"googletagservices.com",
	"adnxs.com",
	"adsrvr.org",
	"amazon-adsystem.com",
	"criteo.com",
	"criteo.net",
	"outbrain.com",
	"taboola.com",
	"moatads.com",
	"pubmatic.com",
	"rubiconproject.com",
	"scorecardresearch.com",
	"quantserve.com",
	"hotjar.com",
	"mixpanel.com",
	"segment.io",
	"segment.com",
	"chartbeat.com",
	"optimizely.com",
	"zedo.com",
	"media.net",
	"openx.net",
	"casalemedia.com",
	"demdex.net",
	"krxd.net",
	"bluekai.com",
	"mathtag.com",
	"serving-sys.com",
	"sharethis.com",
	"addthis.com",
}
