// Package feature maps one URL record plus its probe results to the fixed
// 30-slot vector the classifier was trained on. Slot order is the contract:
// the model consumes positions, not names, so reordering anything here
// silently corrupts every prediction.
package feature

// Slot indices into the vector, in training order.
const (
	SlotHavingIPAddress = iota
	SlotURLLength
	SlotShorteningService
	SlotHavingAtSymbol
	SlotDoubleSlashRedirecting
	SlotPrefixSuffix
	SlotHavingSubDomain
	SlotSSLFinalState
	SlotDomainRegistrationLength
	SlotFavicon
	SlotPort
	SlotHTTPSToken
	SlotRequestURL
	SlotURLOfAnchor
	SlotLinksInTags
	SlotSFH
	SlotSubmittingToEmail
	SlotAbnormalURL
	SlotRedirect
	SlotOnMouseover
	SlotRightClick
	SlotPopupWindow
	SlotIframe
	SlotAgeOfDomain
	SlotDNSRecord
	SlotWebTraffic
	SlotPageRank
	SlotGoogleIndex
	SlotLinksPointingToPage
	SlotStatisticalReport

	// NumSlots is the length of the vector the model expects.
	NumSlots = SlotStatisticalReport + 1
)

// Names lists the feature names in training order. The model artifact must
// declare exactly this list; the classifier loader enforces it.
var Names = [NumSlots]string{
	"having_IP_Address",
	"URL_Length",
	"Shortining_Service",
	"having_At_Symbol",
	"double_slash_redirecting",
	"Prefix_Suffix",
	"having_Sub_Domain",
	"SSLfinal_State",
	"Domain_registeration_length",
	"Favicon",
	"port",
	"HTTPS_token",
	"Request_URL",
	"URL_of_Anchor",
	"Links_in_tags",
	"SFH",
	"Submitting_to_email",
	"Abnormal_URL",
	"Redirect",
	"on_mouseover",
	"RightClick",
	"popUpWidnow",
	"Iframe",
	"age_of_domain",
	"DNSRecord",
	"web_traffic",
	"Page_Rank",
	"Google_Index",
	"Links_pointing_to_page",
	"Statistical_report",
}

// Vector is one extracted feature vector. Values are -1 (suspicious),
// 0 (neutral), or 1 (legitimate).
type Vector [NumSlots]int8

// Values returns the vector as a slice in contract order.
func (v Vector) Values() []int8 {
	out := make([]int8, NumSlots)
	copy(out, v[:])
	return out
}

// Extraction is the complete result of extracting one URL: the full vector
// plus the set of slots that fell back to their neutral default because a
// probe did not succeed.
type Extraction struct {
	Vector   Vector
	Degraded []int // slot indices, ascending
}

// DegradedNames returns the names of the degraded slots.
func (e Extraction) DegradedNames() []string {
	if len(e.Degraded) == 0 {
		return nil
	}
	names := make([]string, len(e.Degraded))
	for i, slot := range e.Degraded {
		names[i] = Names[slot]
	}
	return names
}
