package model

// Platform identifies a third-party publishing target.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
)

var knownPlatforms = map[Platform]struct{}{
	PlatformYouTube:   {},
	PlatformFacebook:  {},
	PlatformInstagram: {},
	PlatformTikTok:    {},
	PlatformTwitter:   {},
}

func (p Platform) Valid() bool {
	_, ok := knownPlatforms[p]
	return ok
}

func (p Platform) String() string { return string(p) }

// AuthFlowType distinguishes the mobile and desktop consent flows.
type AuthFlowType string

const (
	AuthFlowH5 AuthFlowType = "h5"
	AuthFlowPC AuthFlowType = "pc"
)
